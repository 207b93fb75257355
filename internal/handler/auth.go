package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"DevcampAPI/internal/auth"
	"DevcampAPI/internal/cache"
	"DevcampAPI/internal/resource"
	"DevcampAPI/internal/store"
)

// Auth serves /auth: registration, login and the caller's own account.
type Auth struct {
	reg        *resource.Registry
	users      *resource.Resource
	st         store.Store
	cache      *cache.PageCache
	jwt        *auth.JWTService
	cookieDays int64
	secure     bool
}

func NewAuth(reg *resource.Registry, st store.Store, pc *cache.PageCache, jwt *auth.JWTService, cookieDays int64, secure bool) *Auth {
	return &Auth{
		reg:        reg,
		users:      reg.MustGet("users"),
		st:         st,
		cache:      pc,
		jwt:        jwt,
		cookieDays: cookieDays,
		secure:     secure,
	}
}

type tokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// Lookup loads the token subject for auth.Protect.
func (a *Auth) Lookup(ctx context.Context, id string) (map[string]any, error) {
	return a.st.Get(ctx, a.users, id)
}

func (a *Auth) Register(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody(w, r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	rec, err := a.users.Decode(pick(payload, "name", "email", "password", "role"), false)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := hashPasswordField(rec); err != nil {
		WriteError(w, r, err)
		return
	}
	user, err := a.st.Insert(r.Context(), a.users, rec)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	flushPages(r.Context(), a.cache, a.reg, a.users.Name)
	a.sendToken(w, r, http.StatusOK, user[resource.IDField].(string))
}

func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody(w, r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	email, _ := payload["email"].(string)
	password, _ := payload["password"].(string)
	if strings.TrimSpace(email) == "" || password == "" {
		WriteError(w, r, NewError(http.StatusBadRequest, "Please provide an email and password"))
		return
	}

	user, err := a.st.FindOne(r.Context(), a.users, "email", email)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, NewError(http.StatusUnauthorized, "Invalid credentials"))
		return
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}
	hash, _ := user["password"].(string)
	if !auth.CheckPassword(hash, password) {
		WriteError(w, r, NewError(http.StatusUnauthorized, "Invalid credentials"))
		return
	}
	a.sendToken(w, r, http.StatusOK, user[resource.IDField].(string))
}

func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "none",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: map[string]any{}})
}

func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		WriteError(w, r, auth.ErrNotAuthorized)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: user})
}

// UpdateDetails changes the caller's name and email only.
func (a *Auth) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeBody(w, r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	patch, err := a.users.Decode(pick(payload, "name", "email"), true)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	user, err := a.st.Update(r.Context(), a.users, auth.UserID(r.Context()), patch)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	flushPages(r.Context(), a.cache, a.reg, a.users.Name)
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: user})
}

func (a *Auth) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payload, err := decodeBody(w, r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	current, _ := payload["currentPassword"].(string)
	uid := auth.UserID(ctx)

	user, err := a.st.FindOne(ctx, a.users, resource.IDField, uid)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	hash, _ := user["password"].(string)
	if !auth.CheckPassword(hash, current) {
		WriteError(w, r, NewError(http.StatusUnauthorized, "Password is incorrect"))
		return
	}

	patch, err := a.users.Decode(map[string]any{"password": payload["newPassword"]}, true)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if _, ok := patch["password"]; !ok {
		WriteError(w, r, resource.ValidationErrors{"Please add a password"})
		return
	}
	if err := hashPasswordField(patch); err != nil {
		WriteError(w, r, err)
		return
	}
	if _, err := a.st.Update(ctx, a.users, uid, patch); err != nil {
		WriteError(w, r, err)
		return
	}
	flushPages(ctx, a.cache, a.reg, a.users.Name)
	a.sendToken(w, r, http.StatusOK, uid)
}

// sendToken issues a token and returns it both as JSON and as a cookie.
func (a *Auth) sendToken(w http.ResponseWriter, r *http.Request, status int, userID string) {
	token, err := a.jwt.Issue(userID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(time.Duration(a.cookieDays) * 24 * time.Hour),
		HttpOnly: true,
		Secure:   a.secure,
	})
	writeJSON(w, status, tokenResponse{Success: true, Token: token})
}

func pick(payload map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := payload[k]; ok {
			out[k] = v
		}
	}
	return out
}
