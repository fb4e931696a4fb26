package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	cfg "github.com/example/tasknest/internal/config"
	_ "modernc.org/sqlite"
)

type App struct {
	Store       Store
	Blacklist   Blacklist
	Mailer      Mailer
	Config      *cfg.Config
	rateLimiter *RateLimiter
}

func NewApp(c *cfg.Config, store Store, blacklist Blacklist, mailer Mailer) *App {
	return &App{
		Store:       store,
		Blacklist:   blacklist,
		Mailer:      mailer,
		Config:      c,
		rateLimiter: NewRateLimiter(c.RateLimitPerMinute),
	}
}

// routes builds the full router. Split out of main so handler tests exercise
// the same middleware chain as production.
func (a *App) routes() *mux.Router {
	r := mux.NewRouter()

	r.Use(SecurityHeaders)
	r.Use(a.Logging)
	r.Use(a.CORS)

	// Health check endpoints (no auth required)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if p, ok := a.Store.(interface{ ping() bool }); ok && !p.ping() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
	}).Methods("GET")

	// Public auth endpoints, rate limited per client IP.
	auth := r.PathPrefix("/auth").Subrouter()
	auth.Use(a.RateLimit)
	auth.HandleFunc("/register", a.HandleRegister).Methods("POST")
	auth.HandleFunc("/verify-email/{token}", a.HandleVerifyEmail).Methods("GET")
	auth.HandleFunc("/login", a.HandleLogin).Methods("POST")
	auth.HandleFunc("/refresh-token", a.HandleRefreshToken).Methods("POST")
	auth.HandleFunc("/logout", a.HandleLogout).Methods("POST")
	auth.HandleFunc("/request-password-reset", a.HandleRequestPasswordReset).Methods("POST")
	auth.HandleFunc("/reset-password/{token}", a.HandleResetPassword).Methods("POST")

	// Task endpoints, role "user".
	user := r.PathPrefix("/user").Subrouter()
	user.Use(a.Authenticate)
	user.Use(Authorize(RoleUser))
	user.HandleFunc("/tasks", a.HandleListTasks).Methods("GET")
	user.HandleFunc("/tasks", a.HandleCreateTask).Methods("POST")
	user.HandleFunc("/tasks/{id}", a.HandleGetTask).Methods("GET")
	user.HandleFunc("/tasks/{id}", a.HandleUpdateTask).Methods("PUT")
	user.HandleFunc("/tasks/{id}", a.HandleDeleteTask).Methods("DELETE")
	user.HandleFunc("/tasks/{id}/complete", a.HandleCompleteTask).Methods("PATCH")

	// User management, role "admin".
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(a.Authenticate)
	admin.Use(Authorize(RoleAdmin))
	admin.HandleFunc("/list-user", a.HandleListUsers).Methods("GET")
	admin.HandleFunc("/create-user", a.HandleAdminCreateUser).Methods("POST")
	admin.HandleFunc("/update-user/{id}", a.HandleAdminUpdateUser).Methods("PUT")
	admin.HandleFunc("/delete-user/{id}", a.HandleAdminDeleteUser).Methods("DELETE")

	// Preflight requests are answered by the CORS middleware.
	r.PathPrefix("/").Methods("OPTIONS").HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	return r
}

func main() {
	c, err := cfg.New()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	if level, err := logrus.ParseLevel(c.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	var store Store
	switch c.DBAdapter {
	case "sqlite":
		s, err := NewSQLiteStore(c.SQLiteFile)
		if err != nil {
			logrus.Fatalf("sqlite init: %v", err)
		}
		store = s
	case "postgres":
		logrus.Info("applying database migrations")
		if err := ApplyMigrations("./migrations", c.PostgresDSN); err != nil {
			logrus.Fatalf("migrations: %v", err)
		}
		p, err := NewPostgresStore(c.PostgresDSN)
		if err != nil {
			logrus.Fatalf("postgres init: %v", err)
		}
		store = p
		logrus.Info("connected to PostgreSQL database")
	case "memory":
		logrus.Warn("using in-memory database (not recommended for production)")
		store = NewMemStore()
	default:
		logrus.Fatalf("unsupported DB_ADAPTER: %s", c.DBAdapter)
	}

	var blacklist Blacklist
	switch c.BlacklistBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logrus.Fatalf("redis init: %v", err)
		}
		blacklist = NewRedisBlacklist(client)
		logrus.WithField("addr", c.RedisAddr).Info("using Redis refresh-token blacklist")
	default:
		mb := NewMemoryBlacklist()
		defer mb.Stop()
		blacklist = mb
	}

	var mailer Mailer
	if c.MailBackend == "smtp" {
		mailer = &SMTPMailer{
			Host:     c.SMTPHost,
			Port:     c.SMTPPort,
			Username: c.SMTPUsername,
			Password: c.SMTPPassword,
			From:     c.MailFrom,
			BaseURL:  c.BaseURL,
		}
	} else {
		logrus.Warn("mail backend is log-only; verification links are written to the log")
		mailer = LogMailer{}
	}

	app := NewApp(c, store, blacklist, mailer)

	srv := &http.Server{
		Handler:      app.routes(),
		Addr:         ":" + c.Port,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("port", c.Port).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if closer, ok := app.Store.(interface{ close() error }); ok {
		_ = closer.close()
	}
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatalf("shutdown failed: %v", err)
	}
	logrus.Info("server exited properly")
}
