package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"greencycle/internal/model"
	"greencycle/internal/repository"
	"greencycle/internal/signing"
)

// UserService handles registration, login and device-secret issuance.
type UserService struct {
	repo       repository.UserRepository
	deviceRepo repository.DeviceBindingRepository
}

func NewUserService(repo repository.UserRepository, deviceRepo repository.DeviceBindingRepository) *UserService {
	return &UserService{
		repo:       repo,
		deviceRepo: deviceRepo,
	}
}

// Register creates a new account with role USER.
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, fmt.Errorf("password is required")
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, model.ErrEmailExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:          email,
		Name:           strings.TrimSpace(req.Name),
		Role:           model.RoleUser,
		PasswordHashed: string(hashed),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login verifies credentials and returns the user.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if err == model.ErrUserNotFound {
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// GetByID returns the user with the given id.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

// IssueDeviceSecret generates a fresh clientId/secret pair for (user,
// device), replacing any prior binding for that device. The prior secret
// stops working immediately; the new secret is returned exactly once.
func (s *UserService) IssueDeviceSecret(ctx context.Context, userID int64, deviceID string) (*model.DeviceCredentials, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, fmt.Errorf("deviceId is required")
	}

	if _, err := s.repo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	clientID, err := signing.NewClientID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate client id: %w", err)
	}
	secret, err := signing.NewDeviceSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate device secret: %w", err)
	}

	binding := &model.DeviceBinding{
		UserID:   userID,
		DeviceID: deviceID,
		ClientID: clientID,
		Secret:   secret,
	}
	if err := s.deviceRepo.Upsert(ctx, binding); err != nil {
		return nil, fmt.Errorf("failed to store device binding: %w", err)
	}

	return &model.DeviceCredentials{
		DeviceID: deviceID,
		ClientID: clientID,
		Secret:   secret,
	}, nil
}
