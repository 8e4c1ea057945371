package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gudani/internal/models/db_models"
	"gudani/internal/models/request_models"
	"gudani/internal/models/response_models"
	"gudani/internal/repositories"
	"gudani/pkg/utils"
)

type AccountServiceInterface interface {
	CreateAccount(ctx context.Context, req request_models.SignUpRequest) error
	Login(ctx context.Context, req request_models.LoginRequest) (*response_models.LoginResponse, error)
	Profile(ctx context.Context, userID uuid.UUID) (*response_models.AccountResponse, error)
}

type AccountService struct {
	users  repositories.UserRepository
	subs   repositories.SubscriptionRepository
	plans  repositories.PlanRepository
	logger *zap.Logger
}

func NewAccountService(
	users repositories.UserRepository,
	subs repositories.SubscriptionRepository,
	plans repositories.PlanRepository,
	logger *zap.Logger,
) AccountServiceInterface {
	return &AccountService{users: users, subs: subs, plans: plans, logger: logger}
}

// CreateAccount registers the user and immediately binds them to the FREE
// tier, so every account has a resolvable plan from its first request.
func (s *AccountService) CreateAccount(ctx context.Context, req request_models.SignUpRequest) error {
	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return utils.ErrEmailAlreadyExists
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return err
	}

	user := &db_models.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: hashed,
		Role:         "user",
	}
	if err := s.users.Insert(ctx, user); err != nil {
		return err
	}

	freePlan, err := s.plans.ByTier(ctx, string(db_models.TierFree))
	if err != nil {
		return err
	}
	if freePlan == nil {
		return utils.ErrPlanNotFound
	}

	sub := &db_models.Subscription{UserID: user.ID}
	resetToFree(sub, freePlan)
	return s.subs.Insert(ctx, sub)
}

func (s *AccountService) Login(ctx context.Context, req request_models.LoginRequest) (*response_models.LoginResponse, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrInvalidCredentials
	}
	if err := utils.ComparePasswords(user.PasswordHash, req.Password); err != nil {
		return nil, utils.ErrInvalidCredentials
	}

	token, err := utils.CreateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	return &response_models.LoginResponse{
		Token:    token,
		PlanTier: s.currentTier(ctx, user.ID),
	}, nil
}

func (s *AccountService) Profile(ctx context.Context, userID uuid.UUID) (*response_models.AccountResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, utils.ErrUserNotFound
	}

	return &response_models.AccountResponse{
		ID:        user.ID.String(),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		Role:      user.Role,
		PlanTier:  s.currentTier(ctx, user.ID),
	}, nil
}

// currentTier is best-effort decoration; a missing subscription reads as FREE
// rather than failing the request.
func (s *AccountService) currentTier(ctx context.Context, userID uuid.UUID) string {
	sub, err := s.subs.Current(ctx, userID)
	if err != nil || sub == nil || sub.Plan.Tier == "" {
		return string(db_models.TierFree)
	}
	return string(sub.Plan.Tier)
}
