package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"matri-go/internal/auth"
	"matri-go/internal/config"
	"matri-go/internal/notify"
	"matri-go/internal/storage"
)

// memoryOTPStore is an in-process auth.OTPStore for tests.
type memoryOTPStore struct {
	mu     sync.Mutex
	hashes map[string]string
}

func newMemoryOTPStore() *memoryOTPStore {
	return &memoryOTPStore{hashes: make(map[string]string)}
}

func (s *memoryOTPStore) Save(ctx context.Context, target, codeHash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[target] = codeHash
	return nil
}

func (s *memoryOTPStore) Get(ctx context.Context, target string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hash, ok := s.hashes[target]
	if !ok {
		return "", auth.ErrOTPNotFound
	}
	return hash, nil
}

func (s *memoryOTPStore) Delete(ctx context.Context, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes, target)
	return nil
}

// capturingNotifier records the last delivery per channel.
type capturingNotifier struct {
	mu     sync.Mutex
	target string
	body   string
}

func (n *capturingNotifier) Notify(ctx context.Context, target string, payload notify.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.target = target
	n.body = payload.Body
	return nil
}

func (n *capturingNotifier) last() (string, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target, n.body
}

// codeFromBody extracts the numeric code from the delivery body, which
// reads "Your verification code is 123456. ...".
func codeFromBody(t *testing.T, body string) string {
	t.Helper()
	fields := strings.Fields(body)
	if len(fields) < 5 {
		t.Fatalf("unexpected OTP body: %q", body)
	}
	return strings.TrimSuffix(fields[4], ".")
}

type authFixture struct {
	svc   AuthService
	store *memoryOTPStore
	email *capturingNotifier
	sms   *capturingNotifier
	users storage.UserRepository
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := newTestDB(t)
	userRepo := storage.NewGormUserRepository(db)
	store := newMemoryOTPStore()
	email := &capturingNotifier{}
	sms := &capturingNotifier{}
	dispatcher := notify.NewDispatcher(email, sms, &capturingNotifier{})
	authCfg := config.AuthConfig{
		JWTSecretKey: "test-secret",
		JWTExpiry:    time.Hour,
		OTPLength:    6,
		OTPTTL:       5 * time.Minute,
	}
	return &authFixture{
		svc:   NewAuthService(userRepo, store, dispatcher, authCfg),
		store: store,
		email: email,
		sms:   sms,
		users: userRepo,
	}
}

func TestRequestOTPDeliversByChannel(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	if err := f.svc.RequestOTP(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RequestOTP(email) error: %v", err)
	}
	target, body := f.email.last()
	if target != "alice@example.com" {
		t.Errorf("email delivered to %q, want alice@example.com", target)
	}
	code := codeFromBody(t, body)
	if len(code) != 6 {
		t.Errorf("code %q has length %d, want 6", code, len(code))
	}

	// The store never holds the code in the clear.
	hash, err := f.store.Get(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("stored hash missing: %v", err)
	}
	if hash == code {
		t.Error("OTP stored unhashed")
	}
	if !auth.CheckOTP(hash, code) {
		t.Error("stored hash does not match the delivered code")
	}

	if err := f.svc.RequestOTP(ctx, "+9715551234"); err != nil {
		t.Fatalf("RequestOTP(phone) error: %v", err)
	}
	if target, _ := f.sms.last(); target != "+9715551234" {
		t.Errorf("SMS delivered to %q, want +9715551234", target)
	}

	if err := f.svc.RequestOTP(ctx, "   "); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("blank target error = %v, want ErrInvalidTarget", err)
	}
}

func TestVerifyOTPRegistersAndLogsIn(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	if err := f.svc.RequestOTP(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RequestOTP() error: %v", err)
	}
	_, body := f.email.last()
	code := codeFromBody(t, body)

	token, user, err := f.svc.VerifyOTP(ctx, "alice@example.com", code, "Alice", "female")
	if err != nil {
		t.Fatalf("VerifyOTP() error: %v", err)
	}
	if token == "" {
		t.Error("expected a signed token")
	}
	if user.ID == "" || user.Email == nil || *user.Email != "alice@example.com" || user.FullName != "Alice" {
		t.Errorf("registered user = %+v, want Alice with her email", user)
	}
	if user.Phone != nil {
		t.Errorf("Phone = %v, want unset for an email registration", *user.Phone)
	}
	if user.LastLoginAt == nil {
		t.Error("LastLoginAt must be stamped on first verification")
	}

	// The code is consumed; replaying it fails.
	if _, _, err := f.svc.VerifyOTP(ctx, "alice@example.com", code, "", ""); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("replayed code error = %v, want ErrInvalidOTP", err)
	}

	// A later login resolves to the same account.
	if err := f.svc.RequestOTP(ctx, "alice@example.com"); err != nil {
		t.Fatalf("second RequestOTP() error: %v", err)
	}
	_, body = f.email.last()
	_, sameUser, err := f.svc.VerifyOTP(ctx, "alice@example.com", codeFromBody(t, body), "", "")
	if err != nil {
		t.Fatalf("second VerifyOTP() error: %v", err)
	}
	if sameUser.ID != user.ID {
		t.Errorf("second login resolved to user %s, want %s", sameUser.ID, user.ID)
	}
}

func TestVerifyOTPWrongCode(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	if err := f.svc.RequestOTP(ctx, "alice@example.com"); err != nil {
		t.Fatalf("RequestOTP() error: %v", err)
	}
	if _, _, err := f.svc.VerifyOTP(ctx, "alice@example.com", "000000", "", ""); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("wrong code error = %v, want ErrInvalidOTP", err)
	}
	if _, _, err := f.svc.VerifyOTP(ctx, "never-requested@example.com", "123456", "", ""); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("unknown target error = %v, want ErrInvalidOTP", err)
	}
}
