package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zhouzirui/riji/backend/internal/model/user"
)

var (
	ErrMissingCode  = errors.New("code is required")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrUserNotFound = errors.New("user not found")
)

// UserStore persists user profiles.
type UserStore interface {
	Get(ctx context.Context, openID string) (user.User, error)
	Upsert(ctx context.Context, u user.User) error
}

// LoginResult 是登录成功后返回给客户端的内容。
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      user.User `json:"userInfo"`
}

// Service 编排登录、资料、手机号绑定与令牌注销。
type Service struct {
	provider Provider
	users    UserStore
	notFound error
	tokens   *TokenManager
	validate *validator.Validate
	now      func() time.Time
	logger   *zap.Logger

	mu      sync.Mutex
	revoked map[string]time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithUserNotFound maps the store's not-found sentinel to ErrUserNotFound.
func WithUserNotFound(err error) Option {
	return func(s *Service) { s.notFound = err }
}

// WithClock injects the time source for the service and its token manager.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
		s.tokens.now = now
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService wires a provider, a user store and a token manager.
func NewService(provider Provider, users UserStore, tokens *TokenManager, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		users:    users,
		tokens:   tokens,
		validate: validator.New(),
		now:      time.Now,
		logger:   zap.NewNop(),
		revoked:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "auth"), zap.String("provider", provider.Name()))
	return s
}

// Login 用微信登录凭证换取身份并签发令牌。首次登录会创建用户，profile 为空时使用默认资料。
func (s *Service) Login(ctx context.Context, code string, profile *user.Profile) (LoginResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return LoginResult{}, ErrMissingCode
	}
	if profile != nil {
		if err := s.validate.Struct(profile); err != nil {
			return LoginResult{}, fmt.Errorf("invalid profile: %w", err)
		}
	}

	identity, err := s.provider.Login(ctx, code)
	if err != nil {
		return LoginResult{}, fmt.Errorf("login failed: %w", err)
	}

	now := s.now().UTC()
	u, err := s.users.Get(ctx, identity.OpenID)
	switch {
	case err == nil:
	case s.isNotFound(err):
		u = user.User{OpenID: identity.OpenID, CreatedAt: now}
		u.ApplyProfile(user.DefaultProfile())
	default:
		return LoginResult{}, err
	}

	if identity.UnionID != "" {
		u.UnionID = identity.UnionID
	}
	if profile != nil {
		u.ApplyProfile(*profile)
	}
	u.UpdatedAt = now
	if err := s.users.Upsert(ctx, u); err != nil {
		return LoginResult{}, err
	}

	token, claims, err := s.tokens.Issue(u.OpenID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("user logged in", zap.String("open_id", u.OpenID))
	return LoginResult{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: u}, nil
}

// Profile loads the stored user.
func (s *Service) Profile(ctx context.Context, openID string) (user.User, error) {
	u, err := s.users.Get(ctx, openID)
	if s.isNotFound(err) {
		return user.User{}, ErrUserNotFound
	}
	return u, err
}

// BindPhone 解析手机号授权 code 并写入用户资料。
func (s *Service) BindPhone(ctx context.Context, openID, code string) (user.PhoneInfo, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return user.PhoneInfo{}, ErrMissingCode
	}

	u, err := s.Profile(ctx, openID)
	if err != nil {
		return user.PhoneInfo{}, err
	}

	phone, err := s.provider.PhoneNumber(ctx, code)
	if err != nil {
		return user.PhoneInfo{}, fmt.Errorf("failed to get phone number: %w", err)
	}

	u.ApplyPhone(phone)
	u.UpdatedAt = s.now().UTC()
	if err := s.users.Upsert(ctx, u); err != nil {
		return user.PhoneInfo{}, err
	}
	return phone, nil
}

// Authenticate verifies token and rejects revoked ones.
func (s *Service) Authenticate(token string) (*Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CheckSession reports whether token is still usable.
func (s *Service) CheckSession(token string) bool {
	_, err := s.Authenticate(token)
	return err == nil
}

// Logout revokes token until it would have expired anyway.
func (s *Service) Logout(token string) error {
	claims, err := s.Authenticate(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.revoked[claims.ID] = claims.ExpiresAt.Time
	s.mu.Unlock()

	s.logger.Info("user logged out", zap.String("open_id", claims.OpenID))
	return nil
}

// PruneRevoked forgets revoked tokens that have expired.
func (s *Service) PruneRevoked() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for id, exp := range s.revoked {
		if !exp.After(now) {
			delete(s.revoked, id)
			pruned++
		}
	}
	return pruned
}

func (s *Service) isNotFound(err error) bool {
	return err != nil && s.notFound != nil && errors.Is(err, s.notFound)
}
