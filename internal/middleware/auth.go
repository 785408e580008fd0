package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zhouzirui/riji/backend/internal/auth"
	"github.com/zhouzirui/riji/backend/pkg/utils"
)

type contextKey struct{ name string }

var (
	openIDKey = &contextKey{"openid"}
	tokenKey  = &contextKey{"token"}
)

// Authenticator verifies bearer tokens.
type Authenticator interface {
	Authenticate(token string) (*auth.Claims, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// WebSocket and EventSource clients cannot set headers, so ?access_token= is accepted too.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) >= len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

// RequireAuth 校验令牌并把 openId 放进请求上下文，失败时返回 401。
func RequireAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				utils.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := authn.Authenticate(token)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), openIDKey, claims.OpenID)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth 与 RequireAuth 相同，但令牌缺失或无效时按匿名请求放行。
func OptionalAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := BearerToken(r); token != "" {
				if claims, err := authn.Authenticate(token); err == nil {
					ctx := context.WithValue(r.Context(), openIDKey, claims.OpenID)
					ctx = context.WithValue(ctx, tokenKey, token)
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OpenID returns the authenticated user's openId, or "" outside RequireAuth.
func OpenID(ctx context.Context) string {
	id, _ := ctx.Value(openIDKey).(string)
	return id
}

// Token returns the bearer token accepted by RequireAuth.
func Token(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// WithOpenID stores openID in ctx.
func WithOpenID(ctx context.Context, openID string) context.Context {
	return context.WithValue(ctx, openIDKey, openID)
}
