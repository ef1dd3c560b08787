package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"matri-go/internal/auth"
	"matri-go/internal/config"
	"matri-go/internal/models"
	"matri-go/internal/notify"
	"matri-go/internal/storage"
)

var (
	ErrInvalidTarget = errors.New("a valid email or phone number is required")
	ErrInvalidOTP    = errors.New("invalid or expired verification code")
)

// AuthService handles OTP-based registration and login. The code travels to
// the user through the notification sink; only its bcrypt hash is stored,
// with a TTL, and verification consumes it.
type AuthService interface {
	// RequestOTP generates a one-time code for the target (email or phone)
	// and hands it to the matching delivery channel.
	RequestOTP(ctx context.Context, target string) error
	// VerifyOTP checks and consumes the code. The user is created on first
	// verification (registration); subsequent verifications log them in.
	// Returns a signed JWT and the user.
	VerifyOTP(ctx context.Context, target, code, fullName, gender string) (string, *models.User, error)
}

type authService struct {
	userRepo   storage.UserRepository
	otpStore   auth.OTPStore
	dispatcher *notify.Dispatcher
	authCfg    config.AuthConfig
}

// NewAuthService creates a new AuthService instance.
func NewAuthService(userRepo storage.UserRepository, otpStore auth.OTPStore, dispatcher *notify.Dispatcher, authCfg config.AuthConfig) AuthService {
	return &authService{
		userRepo:   userRepo,
		otpStore:   otpStore,
		dispatcher: dispatcher,
		authCfg:    authCfg,
	}
}

func (s *authService) RequestOTP(ctx context.Context, target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return ErrInvalidTarget
	}

	code, err := auth.GenerateOTP(s.authCfg.OTPLength)
	if err != nil {
		return fmt.Errorf("generating OTP: %w", err)
	}
	hash, err := auth.HashOTP(code)
	if err != nil {
		return fmt.Errorf("hashing OTP: %w", err)
	}
	if err := s.otpStore.Save(ctx, target, hash, s.authCfg.OTPTTL); err != nil {
		return err
	}

	payload := notify.Payload{
		Title: "Your verification code",
		Body:  fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(s.authCfg.OTPTTL.Minutes())),
	}
	user := &models.User{}
	if isEmail(target) {
		user.Email = &target
	} else {
		user.Phone = &target
	}
	if err := s.dispatcher.NotifyUser(ctx, user, payload); err != nil {
		// The code is stored; delivery problems are logged, not fatal.
		log.Printf("Error delivering OTP to %s: %v", target, err)
	}
	return nil
}

func (s *authService) VerifyOTP(ctx context.Context, target, code, fullName, gender string) (string, *models.User, error) {
	target = strings.TrimSpace(target)
	if target == "" || code == "" {
		return "", nil, ErrInvalidTarget
	}

	hash, err := s.otpStore.Get(ctx, target)
	if err != nil {
		if errors.Is(err, auth.ErrOTPNotFound) {
			return "", nil, ErrInvalidOTP
		}
		return "", nil, err
	}
	if !auth.CheckOTP(hash, code) {
		return "", nil, ErrInvalidOTP
	}
	if err := s.otpStore.Delete(ctx, target); err != nil {
		log.Printf("Error consuming OTP for %s: %v", target, err)
	}

	user, err := s.lookupByTarget(ctx, target)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, fmt.Errorf("looking up user for %s: %w", target, err)
	}

	now := time.Now()
	if user == nil {
		user = &models.User{
			FullName:    fullName,
			Gender:      gender,
			Registered:  true,
			LastLoginAt: &now,
		}
		if isEmail(target) {
			user.Email = &target
		} else {
			user.Phone = &target
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return "", nil, fmt.Errorf("registering user for %s: %w", target, err)
		}
	} else {
		user.LastLoginAt = &now
		if err := s.userRepo.Update(ctx, user); err != nil {
			log.Printf("Error updating last login for user %s: %v", user.ID, err)
		}
	}

	token, err := auth.GenerateToken(user.ID, s.authCfg)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *authService) lookupByTarget(ctx context.Context, target string) (*models.User, error) {
	if isEmail(target) {
		return s.userRepo.GetByEmail(ctx, target)
	}
	return s.userRepo.GetByPhone(ctx, target)
}

func isEmail(target string) bool {
	return strings.Contains(target, "@")
}
