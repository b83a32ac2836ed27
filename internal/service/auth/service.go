package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	mqcontracts "taskmanager/contracts/mq"
	"taskmanager/internal/model"
	"taskmanager/internal/repository"
	"taskmanager/internal/util"
	"taskmanager/pkg/logger"
	"taskmanager/pkg/metrics"
	"taskmanager/pkg/mq"
)

var (
	ErrMissingFields      = errors.New("missing fields")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnauthorized       = errors.New("unauthorized")
)

type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	DOB       string `json:"dob"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

type LoginResult struct {
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Token     string `json:"token"`
}

type Options struct {
	JWTSecret string
	JWTTTL    time.Duration
	Location  *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	users    repository.UserStore
	sessions SessionStore
	events   mq.EventPublisher
	opts     Options
	logger   *zap.Logger
}

func NewService(users repository.UserStore, sessions SessionStore, events mq.EventPublisher, opts Options, logger *zap.Logger) *Service {
	if sessions == nil {
		sessions = NewMemorySessions()
	}
	if events == nil {
		events = mq.NoopPublisher{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{users: users, sessions: sessions, events: events, opts: opts, logger: logger}
}

// DeriveUserID builds <first initial><last initial><n>, where n sums the three
// numeric parts of dob with the day of month, hour, minute and second of now.
// Ids are not unique.
func DeriveUserID(firstName, lastName, dob string, now time.Time) (string, error) {
	first, last := initial(firstName), initial(lastName)
	if first == "" || last == "" {
		return "", ErrMissingFields
	}

	parts := strings.Split(strings.TrimSpace(dob), "-")
	if len(parts) != 3 {
		return "", fmt.Errorf("dob %q: %w", dob, model.ErrInvalidDate)
	}
	sum := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return "", fmt.Errorf("dob %q: %w", dob, model.ErrInvalidDate)
		}
		sum += n
	}
	sum += now.Day() + now.Hour() + now.Minute() + now.Second()
	return first + last + strconv.Itoa(sum), nil
}

func initial(name string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}

// Register appends a user row and returns the derived user id.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	log := logger.WithTrace(ctx, s.logger)
	if in.FirstName == "" || in.LastName == "" || in.DOB == "" || in.Email == "" || in.Password == "" {
		metrics.RecordAuthAttempt("register", "invalid")
		return "", ErrMissingFields
	}

	now := s.opts.Now().In(s.opts.Location)
	userID, err := DeriveUserID(in.FirstName, in.LastName, in.DOB, now)
	if err != nil {
		metrics.RecordAuthAttempt("register", "invalid")
		return "", err
	}

	hash, err := util.HashPassword(in.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		ID:           userID,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		DOB:          in.DOB,
		Email:        in.Email,
		Phone:        in.Phone,
		RegisteredAt: now,
		Password:     hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		metrics.RecordAuthAttempt("register", "error")
		return "", fmt.Errorf("create user: %w", err)
	}

	log.Info("User registered", zap.String("user_id", userID))
	metrics.RecordAuthAttempt("register", "ok")

	s.publish(ctx, mqcontracts.RoutingUserRegistered, mqcontracts.UserRegisteredPayload{
		UserID:       userID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		RegisteredAt: now,
	})
	return userID, nil
}

// Login returns the first row, in insertion order, whose email matches and whose
// password verifies.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	log := logger.WithTrace(ctx, s.logger)
	if email == "" || password == "" {
		metrics.RecordAuthAttempt("login", "invalid")
		return nil, ErrInvalidCredentials
	}

	candidates, err := s.users.ListByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	var match *model.User
	for i := range candidates {
		if util.CheckPassword(password, candidates[i].Password) {
			match = &candidates[i]
			break
		}
	}
	if match == nil {
		metrics.RecordAuthAttempt("login", "rejected")
		log.Info("Login rejected", zap.Int("candidates", len(candidates)))
		return nil, ErrInvalidCredentials
	}

	now := s.opts.Now()
	if err := s.users.SetLastLogin(ctx, match.RowID, now); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	token, err := util.GenerateJWT(match.ID, s.opts.JWTSecret, s.opts.JWTTTL, now)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	if err := s.sessions.Save(ctx, match.ID, token, s.ttl()); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	log.Info("User logged in", zap.String("user_id", match.ID))
	metrics.RecordAuthAttempt("login", "ok")
	return &LoginResult{
		UserID:    match.ID,
		FirstName: match.FirstName,
		LastName:  match.LastName,
		Token:     token,
	}, nil
}

// Logout stamps the first row carrying userID and revokes its session.
func (s *Service) Logout(ctx context.Context, userID string) error {
	log := logger.WithTrace(ctx, s.logger)
	if userID == "" {
		return ErrUserNotFound
	}

	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordAuthAttempt("logout", "not_found")
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	if err := s.users.SetLastLogout(ctx, u.RowID, s.opts.Now()); err != nil {
		return fmt.Errorf("record logout: %w", err)
	}
	if err := s.sessions.Revoke(ctx, userID); err != nil {
		log.Warn("Failed to revoke session", zap.String("user_id", userID), zap.Error(err))
	}

	log.Info("User logged out", zap.String("user_id", userID))
	metrics.RecordAuthAttempt("logout", "ok")
	return nil
}

// Authenticate verifies token and that its session is still live, returning the user id.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	userID, err := util.ParseJWT(token, s.opts.JWTSecret, s.opts.Now())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	ok, err := s.sessions.Valid(ctx, userID, token)
	if err != nil {
		return "", fmt.Errorf("check session: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: session expired", ErrUnauthorized)
	}
	return userID, nil
}

func (s *Service) ttl() time.Duration {
	if s.opts.JWTTTL <= 0 {
		return 24 * time.Hour
	}
	return s.opts.JWTTTL
}

func (s *Service) publish(ctx context.Context, routingKey string, payload any) {
	err := s.events.Publish(ctx, routingKey, payload)
	metrics.RecordEventPublished(routingKey, err)
	if err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to publish event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}
