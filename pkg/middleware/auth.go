package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fkhayef/sharedexpenses/pkg/logger"
	"github.com/fkhayef/sharedexpenses/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserIDKey is the context key for the authenticated user ID
	UserIDKey ContextKey = "user_id"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// Identity is what the identity provider asserts about the caller
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// UserResolver maps a verified identity to the internal user id, creating the
// user on first sight.
type UserResolver interface {
	Resolve(ctx context.Context, identity Identity) (int64, error)
}

// Claims are the JWT claims issued by the identity provider
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// TokenVerifier validates HS256 tokens signed by the identity provider
type TokenVerifier struct {
	secretKey []byte
	issuer    string
}

// NewTokenVerifier creates a verifier. An empty issuer disables the issuer check.
func NewTokenVerifier(secretKey, issuer string) *TokenVerifier {
	return &TokenVerifier{secretKey: []byte(secretKey), issuer: issuer}
}

// Verify parses and validates a token, returning its claims
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secretKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// AuthMiddleware requires a valid bearer token and puts the resolved internal
// user id into the request context.
func AuthMiddleware(verifier *TokenVerifier, resolver UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				response.Unauthorized(w, err.Error())
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				response.Unauthorized(w, "Invalid or expired token")
				return
			}

			userID, err := resolver.Resolve(r.Context(), Identity{
				Subject: claims.Subject,
				Email:   claims.Email,
				Name:    claims.Name,
			})
			if err != nil {
				logger.FromRequest(r).WithError(err).Error("failed to resolve authenticated user")
				response.InternalError(w, "Failed to resolve user")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}

// TestUserMiddleware allows setting user ID via X-Test-User-ID header (DEV ONLY).
// Requests without the header act as defaultUserID.
func TestUserMiddleware(defaultUserID int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := defaultUserID
			if header := r.Header.Get("X-Test-User-ID"); header != "" {
				id, err := strconv.ParseInt(header, 10, 64)
				if err != nil || id < 1 {
					response.Unauthorized(w, "Invalid X-Test-User-ID header")
					return
				}
				userID = id
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID stores the authenticated user ID in ctx
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID extracts the user ID from the request context
func GetUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}

// RequireUser rejects requests that reached a handler without an identity
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserID(r.Context()); !ok {
			response.Unauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CurrentUser returns the caller's user ID, answering 401 when there is none
func CurrentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
	}
	return userID, ok
}
