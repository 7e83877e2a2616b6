package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const roleAdmin = "admin"

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid bearer token")
)

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// Claims are issued by the external identity provider. Only the subject and
// the optional role are read.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type principalKey struct{}

func withPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(Principal)
	return principal, ok && principal.UserID != ""
}

// Authenticator verifies HS256 bearer tokens. Admins are recognized by the
// role claim or by membership in the configured admin id list.
type Authenticator struct {
	secret []byte
	issuer string
	admins map[string]struct{}
}

func NewAuthenticator(secret string, issuer string, adminUserIDs []string) Authenticator {
	admins := make(map[string]struct{}, len(adminUserIDs))
	for _, id := range adminUserIDs {
		if id = strings.TrimSpace(id); id != "" {
			admins[id] = struct{}{}
		}
	}
	return Authenticator{
		secret: []byte(secret),
		issuer: strings.TrimSpace(issuer),
		admins: admins,
	}
}

func (a Authenticator) Parse(raw string) (Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Principal{}, errMissingToken
	}
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		options = append(options, jwt.WithIssuer(a.issuer))
	}
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, options...)
	if err != nil {
		return Principal{}, errors.Join(errInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return Principal{}, errInvalidToken
	}

	principal := Principal{UserID: strings.TrimSpace(claims.Subject)}
	_, listed := a.admins[principal.UserID]
	principal.IsAdmin = listed || strings.EqualFold(claims.Role, roleAdmin)
	return principal, nil
}

// Middleware attaches the principal when an Authorization header is present.
// Anonymous requests pass through; a malformed or expired token is rejected.
func (a Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found {
			writeError(w, http.StatusUnauthorized, "invalid_token", "authorization header must be a bearer token")
			return
		}
		principal, err := a.Parse(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token", "bearer token is invalid or expired")
			return
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), principal)))
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "missing_user", "authentication is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
