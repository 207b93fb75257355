package router

import (
	"net/http"
	"time"

	"DevcampAPI/internal/auth"
	"DevcampAPI/internal/cache"
	"DevcampAPI/internal/config"
	"DevcampAPI/internal/handler"
	"DevcampAPI/internal/logger"
	"DevcampAPI/internal/metrics"
	"DevcampAPI/internal/resource"
	"DevcampAPI/internal/store"

	"github.com/gorilla/mux"
)

const (
	rolePublisher = "publisher"
	roleUser      = "user"
)

// InitRoutes собирает маршруты API /api/v1 и /metrics
func InitRoutes(cfg *config.Config, reg *resource.Registry, st store.Store, pc *cache.PageCache, jwt *auth.JWTService) http.Handler {
	hooks := handler.DefaultHooks(reg, st)
	res := func(name string) *handler.Resource {
		return handler.NewResource(reg, reg.MustGet(name), st, pc, hooks[name])
	}
	bootcamps, courses, reviews, users := res("bootcamps"), res("courses"), res("reviews"), res("users")
	authH := handler.NewAuth(reg, st, pc, jwt, cfg.JWT.CookieExpireDays, cfg.IsProduction())

	protect := auth.Protect(jwt, authH.Lookup, handler.WriteError)
	guard := func(h http.HandlerFunc, roles ...string) http.Handler {
		if len(roles) == 0 {
			return protect(h)
		}
		return protect(auth.Authorize(handler.WriteError, roles...)(h))
	}

	r := mux.NewRouter()
	r.Use(withLogging)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/bootcamps", bootcamps.List).Methods(http.MethodGet)
	api.Handle("/bootcamps", guard(bootcamps.Create, rolePublisher, auth.RoleAdmin)).Methods(http.MethodPost)
	api.HandleFunc("/bootcamps/{id}", bootcamps.Get).Methods(http.MethodGet)
	api.Handle("/bootcamps/{id}", guard(bootcamps.Update, rolePublisher, auth.RoleAdmin)).Methods(http.MethodPut)
	api.Handle("/bootcamps/{id}", guard(bootcamps.Delete, rolePublisher, auth.RoleAdmin)).Methods(http.MethodDelete)

	api.HandleFunc("/bootcamps/{bootcampId}/courses", courses.List).Methods(http.MethodGet)
	api.Handle("/bootcamps/{bootcampId}/courses", guard(courses.Create, rolePublisher, auth.RoleAdmin)).Methods(http.MethodPost)
	api.HandleFunc("/courses", courses.List).Methods(http.MethodGet)
	api.HandleFunc("/courses/{id}", courses.Get).Methods(http.MethodGet)
	api.Handle("/courses/{id}", guard(courses.Update, rolePublisher, auth.RoleAdmin)).Methods(http.MethodPut)
	api.Handle("/courses/{id}", guard(courses.Delete, rolePublisher, auth.RoleAdmin)).Methods(http.MethodDelete)

	api.HandleFunc("/bootcamps/{bootcampId}/reviews", reviews.List).Methods(http.MethodGet)
	api.Handle("/bootcamps/{bootcampId}/reviews", guard(reviews.Create, roleUser, auth.RoleAdmin)).Methods(http.MethodPost)
	api.HandleFunc("/reviews", reviews.List).Methods(http.MethodGet)
	api.HandleFunc("/reviews/{id}", reviews.Get).Methods(http.MethodGet)
	api.Handle("/reviews/{id}", guard(reviews.Update, roleUser, auth.RoleAdmin)).Methods(http.MethodPut)
	api.Handle("/reviews/{id}", guard(reviews.Delete, roleUser, auth.RoleAdmin)).Methods(http.MethodDelete)

	api.Handle("/users", guard(users.List, auth.RoleAdmin)).Methods(http.MethodGet)
	api.Handle("/users", guard(users.Create, auth.RoleAdmin)).Methods(http.MethodPost)
	api.Handle("/users/{id}", guard(users.Get, auth.RoleAdmin)).Methods(http.MethodGet)
	api.Handle("/users/{id}", guard(users.Update, auth.RoleAdmin)).Methods(http.MethodPut)
	api.Handle("/users/{id}", guard(users.Delete, auth.RoleAdmin)).Methods(http.MethodDelete)

	api.HandleFunc("/auth/register", authH.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authH.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", authH.Logout).Methods(http.MethodGet)
	api.Handle("/auth/me", guard(authH.Me)).Methods(http.MethodGet)
	api.Handle("/auth/updatedetails", guard(authH.UpdateDetails)).Methods(http.MethodPut)
	api.Handle("/auth/updatepassword", guard(authH.UpdatePassword)).Methods(http.MethodPut)

	r.NotFoundHandler = withLogging(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		handler.WriteError(w, req, handler.NewError(http.StatusNotFound, "Route not found"))
	}))

	return withCORS(cfg.CORS, r)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withLogging пишет строку "response" на каждый запрос и обновляет метрики
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		took := time.Since(start)
		metrics.ObserveRequest(r.Method, route, sw.status, took)

		level := "info"
		if sw.status >= 500 {
			level = "error"
		} else if sw.status >= 400 {
			level = "warn"
		}
		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"route":       route,
			"status":      sw.status,
			"duration_ms": took.Milliseconds(),
		}
		switch level {
		case "error":
			logger.Error("response", fields)
		case "warn":
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	})
}
