// Package identity verifies bearer identity tokens issued by the external
// auth provider and attaches the caller to the request context.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ashureev/confido/internal/access"
	"github.com/ashureev/confido/internal/apperr"
	"github.com/ashureev/confido/internal/domain"
)

// TokenQueryParam carries the token for clients that cannot set headers,
// such as browser websockets.
const TokenQueryParam = "access_token"

type contextKey int

const claimsKey contextKey = iota

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid identity token")

// Claims is the identity asserted by the auth provider.
type Claims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

// Profile projects the claims onto a stored profile.
func (c *Claims) Profile(now time.Time) *domain.Profile {
	return &domain.Profile{
		ID:        c.Subject,
		FullName:  domain.StringPtr(c.Name),
		AvatarURL: domain.StringPtr(c.AvatarURL),
		Email:     domain.StringPtr(c.Email),
		Provider:  domain.StringPtr(c.Provider),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Verifier checks HS256 tokens against a shared secret.
type Verifier struct {
	key      []byte
	issuer   string
	audience string
}

// NewVerifier creates a verifier. Empty issuer or audience are not checked.
func NewVerifier(secret, issuer, audience string) *Verifier {
	return &Verifier{key: []byte(secret), issuer: issuer, audience: audience}
}

// Verify parses and validates a token. The subject is required.
func (v *Verifier) Verify(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &claims, nil
}

// Issue signs a token for subject valid for ttl. Used by the admin CLI and
// tests; production tokens come from the auth provider.
func (v *Verifier) Issue(c Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if v.issuer != "" && c.Issuer == "" {
		c.Issuer = v.issuer
	}
	if v.audience != "" && len(c.Audience) == 0 {
		c.Audience = jwt.ClaimStrings{v.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &c).SignedString(v.key)
	if err != nil {
		return "", fmt.Errorf("sign identity token: %w", err)
	}
	return signed, nil
}

// ClaimsFromContext returns the verified claims, or nil for anonymous callers.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// ActorFromContext returns the caller as an access actor.
func ActorFromContext(ctx context.Context) access.Actor {
	if c := ClaimsFromContext(ctx); c != nil {
		return access.Actor{UserID: c.Subject}
	}
	return access.Anonymous
}

// WithClaims returns a context carrying c.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get(TokenQueryParam)
}

// ProfileStore persists the profiles of verified callers.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpsertProfile(ctx context.Context, p *domain.Profile) error
}

func ensureProfile(ctx context.Context, repo ProfileStore, c *Claims) error {
	p, err := repo.GetProfile(ctx, c.Subject)
	if err != nil {
		return err
	}
	if p != nil {
		return nil
	}
	return repo.UpsertProfile(ctx, c.Profile(time.Now()))
}

// Middleware attaches verified claims to the request. Requests with a
// missing or invalid token continue anonymously; handlers decide whether
// authentication is required.
func Middleware(v *Verifier, repo ProfileStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := v.Verify(token)
			if err != nil {
				slog.Debug("rejected identity token", "remote_ip", IPFromRequest(r), "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if err := ensureProfile(r.Context(), repo, claims); err != nil {
				slog.Error("failed to initialize profile", "user_id", claims.Subject, "error", err)
				writeProfileError(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// writeProfileError matches the {"error","kind"} body written by the API
// error helpers, which this package cannot import.
func writeProfileError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	body := map[string]string{"error": "failed to initialize profile", "kind": string(apperr.KindInternal)}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode profile error", "error", err)
	}
}

// IPFromRequest returns a normalized remote IP for request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
