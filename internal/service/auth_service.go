package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"paloma-store/internal/model"
	"paloma-store/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// authService implements AuthService.
type authService struct {
	userRepo repository.UserRepository
	cost     int
	logger   zerolog.Logger
}

// NewAuthService creates a new auth service. A cost below bcrypt.MinCost
// falls back to bcrypt.DefaultCost.
func NewAuthService(userRepo repository.UserRepository, cost int, logger zerolog.Logger) AuthService {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &authService{
		userRepo: userRepo,
		cost:     cost,
		logger:   logger.With().Str("service", "auth").Logger(),
	}
}

// SignUp creates a customer account. Accounts are never created as admins.
func (s *authService) SignUp(ctx context.Context, req *model.SignUpRequest) (*model.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, model.NewDomainError(model.KindValidation, model.ErrCodeValidation, "password cannot be used").Wrap(err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
		Role:         model.RoleCustomer,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if !errors.Is(err, model.ErrEmailTaken) {
			s.logger.Error().Err(err).Msg("failed to create user")
		}
		return nil, storeError("failed to create account", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("account created")

	return user, nil
}

// SignIn checks credentials. Unknown e-mails and wrong passwords fail the
// same way.
func (s *authService) SignIn(ctx context.Context, req *model.SignInRequest) (*model.User, error) {
	if req == nil || req.Email == "" || req.Password == "" {
		return nil, model.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to get user")
		return nil, storeError("failed to sign in", err)
	}
	if user == nil {
		return nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Debug().Str("user_id", user.ID.String()).Msg("password mismatch")
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// GetByID retrieves an account.
func (s *authService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", id.String()).Msg("failed to get user")
		return nil, storeError("failed to get account", err)
	}
	if user == nil {
		return nil, model.ErrUserNotFound
	}
	return user, nil
}

// GrantRole changes the role of the account with the given e-mail.
func (s *authService) GrantRole(ctx context.Context, email string, role model.Role) error {
	if role != model.RoleAdmin && role != model.RoleCustomer {
		return model.NewValidationError("role must be customer or admin")
	}

	if err := s.userRepo.SetRole(ctx, strings.TrimSpace(email), role); err != nil {
		return storeError("failed to change role", err)
	}

	s.logger.Info().Str("email", email).Str("role", string(role)).Msg("role granted")

	return nil
}
