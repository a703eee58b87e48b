package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/campusbook/examsvc/internal/api/http"
	authmw "github.com/campusbook/examsvc/internal/auth/middleware"
	"github.com/campusbook/examsvc/internal/config"
	"github.com/campusbook/examsvc/internal/db"
	"github.com/campusbook/examsvc/internal/exam"
	"github.com/campusbook/examsvc/internal/rbac"
	"github.com/campusbook/examsvc/internal/roster"
	syncx "github.com/campusbook/examsvc/internal/sync"
)

func main() {
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	database, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer database.Close()

	rosterStore := roster.NewSQLStore(database)
	store := exam.NewSQLStore(database)
	events := syncx.NewEventRepo(database, cfg.SiteID)
	svc := exam.NewService(store, rosterStore, exam.WithEvents(events))

	authSvc := authmw.NewAuthService(cfg.AuthSecret)
	verifier := authmw.Verifier{
		AdminUser:     cfg.AdminUser,
		AdminPassHash: cfg.AdminPassHash,
		Students:      rosterStore,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := database.PingContext(req.Context()); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", authmw.LoginHandler(authSvc, verifier))
	}

	r.Group(func(r chi.Router) {
		r.Use(authmw.JWTMiddleware(authSvc))

		// Staff surface.
		r.Route("/tests", func(r chi.Router) {
			r.With(rbac.Require("test:create")).Post("/", api.CreateTestHandler(svc))
			r.With(rbac.Require("test:view-own")).Get("/", api.ListTestsHandler(svc))
			r.With(rbac.Require("test:view-own")).Get("/{testID}", api.GetTestHandler(svc))
			r.With(rbac.Require("test:edit")).Put("/{testID}", api.UpdateTestHandler(svc))
			r.With(rbac.Require("test:deploy")).Post("/{testID}/deploy", api.DeployTestHandler(svc))
			r.With(rbac.Require("test:deploy")).Post("/{testID}/reassign", api.ReassignTestHandler(svc))
			r.With(rbac.Require("test:deploy")).Post("/{testID}/close", api.CloseTestHandler(svc))
			r.With(rbac.Require("test:sweep")).Post("/{testID}/sweep", api.SweepHandler(svc))
			r.With(rbac.Require("attempt:view-all")).Get("/{testID}/attempts", api.ListAttemptsHandler(svc))
			r.With(rbac.Require("attempt:adjust")).Post("/{testID}/attempts/{phone}/adjust", api.AdjustMarksHandler(svc))
			r.With(rbac.Require("analytics:view")).Get("/{testID}/analytics", api.TestAnalyticsHandler(svc))
		})

		// Student surface.
		r.Route("/student", func(r chi.Router) {
			r.With(rbac.Require("test:take")).Get("/tests", api.ListStudentTestsHandler(svc))
			r.With(rbac.Require("test:take")).Get("/tests/{testID}", api.ServeTestHandler(svc))
			r.With(rbac.Require("attempt:save")).Post("/tests/{testID}/answers", api.SaveAnswerHandler(svc))
			r.With(rbac.Require("attempt:submit")).Post("/tests/{testID}/submit", api.SubmitAttemptHandler(svc))
			r.With(rbac.Require("result:view-own")).Get("/tests/{testID}/result", api.GetResultHandler(svc))
			r.With(rbac.Require("analytics:view-own")).Get("/analytics", api.StudentAnalyticsHandler(svc))
		})
	})

	log.Printf("examsvc listening on %s (db=%s site=%s)", cfg.HTTPAddr, cfg.DBDriver, cfg.SiteID)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatalf("http server: %v", err)
	}
}
