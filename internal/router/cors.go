package router

import (
	"net/http"
	"slices"
	"strings"

	"DevcampAPI/internal/config"
)

const (
	corsMethods = "GET, POST, PUT, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization"
)

// corsPolicy is CORS_ALLOW_ORIGIN parsed once: "*" or a comma separated list.
type corsPolicy struct {
	origins     []string
	wildcard    bool
	credentials bool
}

func newCORSPolicy(cfg config.CORSConfig) corsPolicy {
	p := corsPolicy{credentials: cfg.AllowCredentials}
	for _, o := range strings.Split(cfg.AllowOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			p.origins = append(p.origins, o)
		}
	}
	p.wildcard = len(p.origins) == 0 || slices.Contains(p.origins, "*")
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for a request
// origin ("" = header not sent) and whether the answer depends on it.
// Credentials forbid "*", so a wildcard then echoes the request origin.
func (p corsPolicy) allowOrigin(origin string) (string, bool) {
	switch {
	case p.wildcard && p.credentials && origin != "":
		return origin, true
	case p.wildcard:
		return "*", false
	case origin != "" && slices.Contains(p.origins, origin):
		return origin, true
	}
	return "", true
}

// withCORS adds CORS headers to every response and answers preflight
// requests itself, before routing.
func withCORS(cfg config.CORSConfig, next http.Handler) http.Handler {
	policy := newCORSPolicy(cfg)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		allow, vary := policy.allowOrigin(r.Header.Get("Origin"))
		if allow != "" {
			h.Set("Access-Control-Allow-Origin", allow)
		}
		if vary {
			h.Add("Vary", "Origin")
		}
		if policy.credentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Allow-Methods", corsMethods)
		h.Set("Access-Control-Allow-Headers", corsHeaders)
		h.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
