package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"gitea.jw6.us/james/teamtasks/internal/config"
	"gitea.jw6.us/james/teamtasks/internal/store"
)

// MinPasswordLength is the shortest password accepted at sign-up and on change.
const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrPasswordMismatch   = errors.New("passwords do not match")
)

// Service encapsulates password sign-in, OIDC sign-in, web sessions and API
// bearer tokens.
type Service struct {
	cfg      *config.Config
	store    *store.Store
	sessions *SessionManager
	tokens   *Tokens
	hashCost int

	oidcMu sync.Mutex
	oidc   *oidcClient
}

func NewService(cfg *config.Config, store *store.Store, sessions *SessionManager, tokens *Tokens) *Service {
	return &Service{cfg: cfg, store: store, sessions: sessions, tokens: tokens, hashCost: bcrypt.DefaultCost}
}

func (s *Service) Sessions() *SessionManager { return s.sessions }

// ValidatePassword applies the password rules shared by sign-up and change.
func ValidatePassword(password, confirm string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

// SignUp creates a password account and its default settings row.
func (s *Service) SignUp(ctx context.Context, email, fullName, password, confirm string) (*store.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(password, confirm); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	hashed := string(hash)

	user, err := s.store.Users.Create(ctx, store.User{
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: &hashed,
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Settings.Insert(ctx, store.DefaultSettings(user.ID)); err != nil {
		log.Printf("[WARN] init settings for %s: %v", user.ID, err)
	}
	return user, nil
}

// SignIn checks an email and password. Unknown emails, OIDC-only accounts and
// wrong passwords all return ErrInvalidCredentials.
func (s *Service) SignIn(ctx context.Context, email, password string) (*store.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.store.Users.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.store.Users.TouchLogin(ctx, user.ID); err != nil {
		log.Printf("[WARN] touch login for %s: %v", user.ID, err)
	}
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, password, confirm string) error {
	if err := ValidatePassword(password, confirm); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.Users.UpdatePassword(ctx, userID, string(hash))
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName string) error {
	return s.store.Users.UpdateProfile(ctx, userID, strings.TrimSpace(fullName))
}

// IssueToken returns an API bearer token for the user.
func (s *Service) IssueToken(user *store.User) (string, time.Time, error) {
	return s.tokens.Issue(user.ID, user.Email)
}

// MarkOffline records that the user left. Failures are only logged.
func (s *Service) MarkOffline(ctx context.Context, userID uuid.UUID) {
	if err := s.store.Presence.Upsert(ctx, userID, false, time.Now().UTC()); err != nil {
		log.Printf("[WARN] presence offline for %s: %v", userID, err)
	}
}
