package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/affiliate"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/auth"
	"github.com/MoniqueCrespo/scortbrasil-testando-sub003/internal/logger"
)

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*User, string, string, error)
	Login(ctx context.Context, req LoginRequest) (*User, string, string, error)
	GetByID(ctx context.Context, userID int) (*User, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, *User, error)
}

type service struct {
	repo          Repository
	affiliateRepo affiliate.Repository
	jwtSecret     string
}

func NewService(repo Repository, affiliateRepo affiliate.Repository, jwtSecret string) Service {
	return &service{
		repo:          repo,
		affiliateRepo: affiliateRepo,
		jwtSecret:     jwtSecret,
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*User, string, string, error) {
	exists, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, "", "", err
	}
	if exists {
		return nil, "", "", ErrEmailExists
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", "", err
	}

	// A bad referral code never blocks the registration.
	var referredBy *int
	if code := strings.TrimSpace(req.ReferralCode); code != "" {
		if referrer, err := s.repo.FindByReferralCode(ctx, code); err == nil {
			referredBy = &referrer.ID
		} else {
			logger.Debugf("Referral code %q did not match any user", code)
		}
	}

	ownCode := strings.Split(uuid.NewString(), "-")[0]
	user, err := s.repo.Create(ctx, req.Name, req.Email, passwordHash, "seller", ownCode, referredBy)
	if err != nil {
		return nil, "", "", err
	}

	if referredBy != nil {
		if _, err := s.affiliateRepo.Attribute(ctx, *referredBy, user.ID); err != nil {
			logger.Errorf("Failed to attribute referral for user %d: %v", user.ID, err)
		}
	}

	accessToken, refreshToken, err := auth.GenerateTokens(user.ID, user.Email, user.Role, s.jwtSecret)
	if err != nil {
		return nil, "", "", err
	}

	return user, accessToken, refreshToken, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*User, string, string, error) {
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", "", ErrInvalidCredentials
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, "", "", ErrInvalidCredentials
	}

	accessToken, refreshToken, err := auth.GenerateTokens(user.ID, user.Email, user.Role, s.jwtSecret)
	if err != nil {
		return nil, "", "", err
	}

	return user, accessToken, refreshToken, nil
}

func (s *service) GetByID(ctx context.Context, userID int) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (string, *User, error) {
	newAccessToken, claims, err := auth.RefreshAccessToken(refreshToken, s.jwtSecret)
	if err != nil {
		return "", nil, err
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", nil, ErrUserNotFound
	}

	return newAccessToken, user, nil
}
