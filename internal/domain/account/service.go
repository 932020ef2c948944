package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/healthhistory/healthhistory/internal/platform/apperr"
	"github.com/healthhistory/healthhistory/internal/platform/auth"
	"github.com/healthhistory/healthhistory/internal/platform/db"
)

// maxPublicIDAttempts bounds how often registration regenerates the
// identity after a public id collision.
const maxPublicIDAttempts = 3

const badCredentials = "Bad email or password"

// maxPasswordBytes is the longest input bcrypt hashes without truncation.
const maxPasswordBytes = 72

// Service registers users and authenticates logins.
type Service struct {
	users        UserRepository
	tokens       *auth.TokenIssuer
	storeTimeout time.Duration
	logger       zerolog.Logger

	hashCost int
	newID    func() uuid.UUID

	dummyOnce sync.Once
	dummyHash []byte
}

func NewService(users UserRepository, tokens *auth.TokenIssuer, storeTimeout time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		users:        users,
		tokens:       tokens,
		storeTimeout: storeTimeout,
		logger:       logger.With().Str("component", "account").Logger(),
		hashCost:     bcrypt.DefaultCost,
		newID:        uuid.New,
	}
}

// Register creates a user and returns its generated public id.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if blank(req.Email) || blank(req.Password) || blank(req.Role) {
		return nil, apperr.Validation("Missing email, password, or role")
	}

	role, err := auth.ParseRole(req.Role)
	if err != nil {
		return nil, apperr.Validation("Invalid role specified")
	}

	if len(req.Password) > maxPasswordBytes {
		return nil, apperr.Validation("Password must be at most 72 bytes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.ErrInternal, Msg: "internal server error", Err: fmt.Errorf("hash password: %w", err)}
	}

	for attempt := 1; attempt <= maxPublicIDAttempts; attempt++ {
		u := &User{
			ID:           s.newID(),
			Email:        req.Email,
			PasswordHash: string(hash),
			Role:         role,
		}
		u.setPublicID(newPublicID(role, u.ID))

		err := s.create(ctx, u)
		switch {
		case err == nil:
			s.logger.Info().
				Str("user_id", u.ID.String()).
				Str("role", role.String()).
				Str("public_id", u.PublicID()).
				Msg("user registered")
			return &RegisterResult{Role: role, PublicID: u.PublicID()}, nil
		case errors.Is(err, ErrDuplicateEmail):
			return nil, apperr.Conflict("User already exists")
		case errors.Is(err, ErrDuplicatePublicID):
			s.logger.Warn().Int("attempt", attempt).Str("public_id", u.PublicID()).Msg("public id collision, regenerating")
			continue
		default:
			s.logger.Error().Err(err).Msg("register user")
			return nil, apperr.Storage(err)
		}
	}

	return nil, apperr.Storage(fmt.Errorf("register: no free public id after %d attempts", maxPublicIDAttempts))
}

func (s *Service) create(ctx context.Context, u *User) error {
	ctx, cancel := db.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.users.Create(ctx, u)
}

// Login verifies the credentials and issues a one-hour access token. An
// unknown email and a wrong password produce the same error.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if blank(req.Email) || blank(req.Password) {
		return nil, apperr.Validation("Missing email or password")
	}

	qctx, cancel := db.WithTimeout(ctx, s.storeTimeout)
	u, err := s.users.GetByEmail(qctx, req.Email)
	cancel()
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Spend the same bcrypt time as a real comparison.
			_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(req.Password))
			return nil, apperr.Auth(badCredentials)
		}
		s.logger.Error().Err(err).Msg("login lookup")
		return nil, apperr.Storage(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.Auth(badCredentials)
	}

	token, _, err := s.tokens.Issue(u.Identity())
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", u.ID.String()).Msg("issue token")
		return nil, apperr.Internal("internal server error")
	}

	return &LoginResult{Token: token, Role: u.Role, PublicID: u.PublicID()}, nil
}

// PatientExists reports whether a Patient with the given public id is
// registered.
func (s *Service) PatientExists(ctx context.Context, publicID string) (bool, error) {
	ctx, cancel := db.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	ok, err := s.users.ExistsByPublicID(ctx, auth.RolePatient, publicID)
	if err != nil {
		return false, apperr.Storage(err)
	}
	return ok, nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), s.hashCost)
		if err != nil {
			s.logger.Error().Err(err).Msg("generate dummy hash")
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
