package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"StudyVault/internal/auth"
)

// CookieName — cookie с токеном для браузерных клиентов.
const CookieName = "auth_token"

type ctxKey struct{}

// Authorizer проверяет bearer-токен.
type Authorizer interface {
	Authorize(token string) (*auth.Capability, error)
}

// WithAuth кладёт Capability в контекст, если запрос несёт валидный токен
// (заголовок Authorization: Bearer или cookie auth_token). Анонимные запросы проходят дальше.
func WithAuth(gate Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			c, err := gate.Authorize(token)
			if err != nil {
				logger.Debugw("auth: token rejected", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, c)))
		})
	}
}

// RequireCapability отвечает 401, если в контексте нет действующей Capability.
func RequireCapability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := CapabilityFromContext(r.Context())
		if !ok || !time.Now().Before(c.ExpiresAt) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("WWW-Authenticate", `Bearer realm="studyvault"`)
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CapabilityFromContext возвращает Capability, положенную WithAuth.
func CapabilityFromContext(ctx context.Context) (*auth.Capability, bool) {
	c, ok := ctx.Value(ctxKey{}).(*auth.Capability)
	return c, ok && c != nil
}

// SetLoginCookie выставляет cookie с токеном на срок его жизни.
func SetLoginCookie(w http.ResponseWriter, tok auth.Token, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    tok.AccessToken,
		Path:     "/",
		Expires:  tok.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
