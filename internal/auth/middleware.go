package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

type contextKey string

const userContextKey contextKey = "auth_user"

// TokenCookie is the cookie login and register set alongside the JSON token.
const TokenCookie = "token"

const RoleAdmin = "admin"

var ErrNotAuthorized = errors.New("not authorized to access this route")

// ForbiddenError is returned when the caller's role is not allowed.
type ForbiddenError struct {
	Role string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("User role %s is not authorized to access this route", e.Role)
}

// UserLookup loads the user record a token's subject refers to.
type UserLookup func(ctx context.Context, id string) (map[string]any, error)

// FailFunc writes an error response, it is the handler package's error writer.
type FailFunc func(w http.ResponseWriter, r *http.Request, err error)

func WithUser(ctx context.Context, user map[string]any) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func UserFromContext(ctx context.Context) (map[string]any, bool) {
	user, ok := ctx.Value(userContextKey).(map[string]any)
	return user, ok
}

func UserID(ctx context.Context) string {
	user, _ := UserFromContext(ctx)
	id, _ := user["id"].(string)
	return id
}

func UserRole(ctx context.Context) string {
	user, _ := UserFromContext(ctx)
	role, _ := user["role"].(string)
	return role
}

// Protect requires a valid token from the Authorization header ("Bearer x")
// or the token cookie, and puts the user record into the request context.
func Protect(svc *JWTService, lookup UserLookup, fail FailFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				fail(w, r, ErrNotAuthorized)
				return
			}
			claims, err := svc.ValidateToken(token)
			if err != nil {
				fail(w, r, ErrNotAuthorized)
				return
			}
			user, err := lookup(r.Context(), claims.Subject)
			if err != nil {
				fail(w, r, ErrNotAuthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// Authorize lets only the given roles through. It must run after Protect.
func Authorize(fail FailFunc, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := UserRole(r.Context())
			if !slices.Contains(roles, role) {
				fail(w, r, &ForbiddenError{Role: role})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if c, err := r.Cookie(TokenCookie); err == nil && c.Value != "none" {
		return c.Value
	}
	return ""
}
