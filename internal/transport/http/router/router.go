package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type UsersHandler interface {
	// Credentials
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)

	// Session (token required)
	Me(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	ChangePassword(w http.ResponseWriter, r *http.Request)
	DeleteAccount(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health HealthHandler
	Users  UsersHandler

	AuthMW    func(http.Handler) http.Handler
	RequestID func(http.Handler) http.Handler
	Metrics   func(http.Handler) http.Handler // optional

	// SecurityHeaders wraps every response; nil skips it.
	SecurityHeaders func(http.Handler) http.Handler
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("nil Users handler")
	}
	if deps.AuthMW == nil {
		return nil, fmt.Errorf("nil Auth middleware")
	}
	if deps.RequestID == nil {
		return nil, fmt.Errorf("nil RequestID middleware")
	}

	r := chi.NewRouter()
	r.Use(deps.RequestID)
	r.Use(chimw.Recoverer)
	if deps.SecurityHeaders != nil {
		r.Use(deps.SecurityHeaders)
	}
	if deps.Metrics != nil {
		r.Use(deps.Metrics)
	}

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/users", func(r chi.Router) {
		r.Post("/", deps.Users.Register)
		r.Post("/login", deps.Users.Login)

		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMW)

			r.Get("/me", deps.Users.Me)
			r.Delete("/me", deps.Users.DeleteAccount)
			r.Delete("/me/token", deps.Users.Logout)
			r.Post("/me/password", deps.Users.ChangePassword)
		})
	})

	return r, nil
}
