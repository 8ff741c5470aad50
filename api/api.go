// Package api provides the HTTP API of the billing backend: user
// registration and authentication, recharge checkout creation and the Stripe
// webhook receiver.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"go.vocdoni.io/dvote/log"

	"github.com/airpanel/billing-backend/db"
	"github.com/airpanel/billing-backend/stripe"
)

const (
	jwtExpiration = 360 * time.Hour // 15 days
	passwordSalt  = "airpanel365"   // salt for password hashing
)

// Config holds the API server configuration.
type Config struct {
	Host      string
	Port      int
	Secret    string
	WebAppURL string
	DB        *db.MongoStorage
	Stripe    *stripe.Service
}

// API type represents the API HTTP server with JWT authentication
// capabilities.
type API struct {
	db        *db.MongoStorage
	auth      *jwtauth.JWTAuth
	host      string
	port      int
	router    *chi.Mux
	secret    string
	webAppURL string
	stripe    *stripe.Service
}

// New creates a new API HTTP server. It does not start the server. Use
// Start() for that.
func New(conf *Config) *API {
	if conf == nil {
		return nil
	}
	return &API{
		db:        conf.DB,
		auth:      jwtauth.New("HS256", []byte(conf.Secret), nil),
		host:      conf.Host,
		port:      conf.Port,
		secret:    conf.Secret,
		webAppURL: conf.WebAppURL,
		stripe:    conf.Stripe,
	}
}

// Start starts the API HTTP server (non blocking).
func (a *API) Start() {
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", a.host, a.port), a.initRouter()); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() http.Handler {
	// Create the router with a basic middleware stack
	r := chi.NewRouter()
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "Stripe-Signature"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Throttle(100))
	r.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	r.Use(middleware.Timeout(45 * time.Second))

	// protected routes
	r.Group(func(r chi.Router) {
		// seek, verify and validate JWT tokens
		r.Use(jwtauth.Verifier(a.auth))
		// handle valid JWT tokens
		r.Use(a.authenticator)
		// refresh the token
		log.Infow("new route", "method", "POST", "path", authRefreshTokenEndpoint)
		r.Post(authRefreshTokenEndpoint, a.refreshTokenHandler)
		// get user information
		log.Infow("new route", "method", "GET", "path", usersMeEndpoint)
		r.Get(usersMeEndpoint, a.userInfoHandler)
		// list the user recharge orders
		log.Infow("new route", "method", "GET", "path", usersMeOrdersEndpoint)
		r.Get(usersMeOrdersEndpoint, a.userOrdersHandler)
		// create a recharge checkout session
		log.Infow("new route", "method", "POST", "path", paymentPurchaseEndpoint)
		r.Post(paymentPurchaseEndpoint, a.rechargePurchaseHandler)
	})

	// public routes
	r.Group(func(r chi.Router) {
		// login
		log.Infow("new route", "method", "POST", "path", authLoginEndpoint)
		r.Post(authLoginEndpoint, a.authLoginHandler)
		// register a new user
		log.Infow("new route", "method", "POST", "path", usersEndpoint)
		r.Post(usersEndpoint, a.registerHandler)
		// public gateway configuration
		log.Infow("new route", "method", "GET", "path", paymentInfoEndpoint)
		r.Get(paymentInfoEndpoint, a.gatewayInfoHandler)
		// stripe webhook receiver
		log.Infow("new route", "method", "POST", "path", paymentNotifyEndpoint)
		r.Post(paymentNotifyEndpoint, a.rechargeNotifyHandler)
		// checkout return redirect
		log.Infow("new route", "method", "GET", "path", paymentReturnEndpoint)
		r.Get(paymentReturnEndpoint, a.rechargeReturnHandler)
		// health check
		log.Infow("new route", "method", "GET", "path", pingEndpoint)
		r.Get(pingEndpoint, func(w http.ResponseWriter, _ *http.Request) {
			if _, err := w.Write([]byte(".")); err != nil {
				log.Warnw("failed to write ping response", "error", err)
			}
		})
	})

	a.router = r
	return r
}
