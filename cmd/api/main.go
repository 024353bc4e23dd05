package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/RanitManik/lucide-note/internal/app"
	"github.com/RanitManik/lucide-note/internal/authpw"
	"github.com/RanitManik/lucide-note/internal/config"
	"github.com/RanitManik/lucide-note/internal/email"
	"github.com/RanitManik/lucide-note/internal/export"
	"github.com/RanitManik/lucide-note/internal/maintenance"
	"github.com/RanitManik/lucide-note/internal/metrics"
	"github.com/RanitManik/lucide-note/internal/search"
	"github.com/RanitManik/lucide-note/internal/session"
	"github.com/RanitManik/lucide-note/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	if cfg.SeedDemo {
		if err := seedIfEmpty(ctx, dataStore); err != nil {
			log.Printf("WARNING: demo seed failed (will retry on next restart): %v", err)
		}
	}

	m := metrics.New()
	deps := app.Deps{
		PDF:     export.ChromePDF{Timeout: cfg.PDFTimeout},
		Metrics: m,
		Mailer: email.NewService(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		}),
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
		deps.Search = search.NewService(meiliClient, dataStore, m)
	}

	var sessions maintenance.SessionStore = dataStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for refresh token storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		deps.Sessions = redisStore
		sessions = redisStore
	} else {
		log.Printf("Using PostgreSQL for refresh token storage")
	}

	if strings.TrimSpace(cfg.S3Endpoint) != "" {
		cache, err := export.NewObjectCache(ctx, export.CacheConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			log.Printf("WARNING: export cache disabled: %v", err)
		} else {
			deps.Cache = cache
		}
	}

	service := app.New(cfg, dataStore, deps)

	if deps.Search != nil {
		go func() {
			reindexCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			tenantIDs, err := dataStore.ListTenantIDs(reindexCtx)
			if err != nil {
				log.Printf("search: list tenants for reindex: %v", err)
				return
			}
			deps.Search.Reindex(reindexCtx, tenantIDs)
		}()
	}

	purger := maintenance.NewPurger(dataStore, sessions)
	if err := purger.Start(cfg.PurgeSchedule); err != nil {
		log.Fatalf("maintenance: %v", err)
	}
	defer purger.Stop()

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// PDF exports can take as long as the Chrome timeout.
		WriteTimeout: cfg.PDFTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Lucide Notes API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// seedIfEmpty loads the demo tenants into a database that has none. Every
// demo account uses the password "password".
func seedIfEmpty(ctx context.Context, s *store.PostgresStore) error {
	count, err := s.CountTenants(ctx)
	if err != nil || count > 0 {
		return err
	}
	hash, err := authpw.HashPassword("password")
	if err != nil {
		return err
	}
	log.Printf("Seeding demo tenants")
	return s.SeedDemoData(ctx, hash)
}
