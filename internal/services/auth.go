package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hireboard/apiserver/internal/store"
	"github.com/hireboard/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "invalid credentials"

// SignupInput is the signup payload.
type SignupInput struct {
	Name     string     `json:"name" validate:"required"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	Role     types.Role `json:"role" validate:"omitempty,oneof=jobSeeker company"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token string
	User  types.User
}

// AuthService verifies credentials and issues tokens.
type AuthService struct {
	users    UserRepository
	tokens   *TokenIssuer
	validate *validator.Validate
	logger   *slog.Logger
	hashCost int

	dummyOnce sync.Once
	dummyHash []byte
}

// AuthOption customizes an AuthService.
type AuthOption func(*AuthService)

// WithHashCost overrides the bcrypt cost.
func WithHashCost(cost int) AuthOption {
	return func(s *AuthService) {
		s.hashCost = cost
	}
}

// WithAuthLogger sets the logger used for unexpected failures.
func WithAuthLogger(logger *slog.Logger) AuthOption {
	return func(s *AuthService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewAuthService(users UserRepository, tokens *TokenIssuer, opts ...AuthOption) *AuthService {
	s := &AuthService{
		users:    users,
		tokens:   tokens,
		validate: newValidator(),
		logger:   slog.Default(),
		hashCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup creates an account and returns a fresh token.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = types.NormalizeEmail(in.Email)
	in.Role = types.Role(strings.TrimSpace(string(in.Role)))
	if err := validateStruct(s.validate, in); err != nil {
		return AuthResult{}, err
	}
	if in.Role == "" {
		in.Role = types.RoleJobSeeker
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return AuthResult{}, conflictError("email already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return AuthResult{}, internalError("failed to check user", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return AuthResult{}, internalError("failed to create user", err)
	}

	user, err := s.users.Create(ctx, types.User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		Role:         in.Role,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return AuthResult{}, conflictError("email already registered")
		}
		return AuthResult{}, internalError("failed to create user", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, internalError("failed to create token", err)
	}

	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ID, "role", user.Role)
	return AuthResult{Token: token, User: user}, nil
}

// Login verifies credentials. Unknown emails and wrong passwords produce
// the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	in.Email = types.NormalizeEmail(in.Email)
	if err := validateStruct(s.validate, in); err != nil {
		return AuthResult{}, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn a comparison so response time does not reveal the miss.
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(in.Password))
			return AuthResult{}, authError(invalidCredentials, nil)
		}
		return AuthResult{}, internalError("failed to authenticate", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return AuthResult{}, authError(invalidCredentials, nil)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, internalError("failed to create token", err)
	}
	return AuthResult{Token: token, User: user}, nil
}

// ResolveToken turns a bearer token into an identity.
func (s *AuthService) ResolveToken(token string) (Identity, error) {
	return s.tokens.Resolve(token)
}

// CurrentUser returns the account behind a resolved identity.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (types.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, notFoundError("user not found")
		}
		return types.User{}, internalError("failed to load user", err)
	}
	return user, nil
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("hireboard-dummy-password"), s.hashCost)
	})
	return s.dummyHash
}
