package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"certtrack/internal/audit"
	certhandler "certtrack/internal/certification/handler"
	certservice "certtrack/internal/certification/service"
	certstore "certtrack/internal/certification/store"
	"certtrack/internal/certification/sweeper"
	evidencehandler "certtrack/internal/evidence/handler"
	evidenceservice "certtrack/internal/evidence/service"
	evidencestore "certtrack/internal/evidence/store"
	linkhandler "certtrack/internal/magiclink/handler"
	linkservice "certtrack/internal/magiclink/service"
	linkstore "certtrack/internal/magiclink/store"
	personstore "certtrack/internal/person/store"
	"certtrack/internal/platform/config"
	"certtrack/internal/platform/email"
	"certtrack/internal/platform/httpserver"
	"certtrack/internal/platform/logger"
	"certtrack/internal/platform/metrics"
	"certtrack/internal/platform/middleware"
	"certtrack/internal/platform/objectstore"
	"certtrack/internal/platform/postgres"
	platformredis "certtrack/internal/platform/redis"
	"certtrack/internal/reminder/dispatcher"
	reminderstore "certtrack/internal/reminder/store"
	"certtrack/internal/scheduler"
	"certtrack/internal/tenantcfg/cache"
	cfghandler "certtrack/internal/tenantcfg/handler"
	cfgservice "certtrack/internal/tenantcfg/service"
	cfgstore "certtrack/internal/tenantcfg/store"
	httptransport "certtrack/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: PostgreSQL when configured, in-memory otherwise.
	var (
		certs     certstore.Store
		evidence  evidencestore.Store
		reminders reminderstore.Store
		links     linkstore.Store
		people    personstore.Reader
		configs   cfgstore.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		certs = certstore.NewPostgres(db)
		evidence = evidencestore.NewPostgres(db)
		reminders = reminderstore.NewPostgres(db)
		links = linkstore.NewPostgres(db)
		people = personstore.NewPostgres(db)
		configs = cfgstore.NewPostgres(db)
	} else {
		log.Warn("no DATABASE_URL configured, using in-memory stores")
		certs = certstore.NewInMemory()
		evidence = evidencestore.NewInMemory()
		reminders = reminderstore.NewInMemory()
		links = linkstore.NewInMemory()
		people = personstore.NewInMemory()
		configs = cfgstore.NewInMemory()
	}

	// Tenant policy cache: shared via Redis when available, per-process
	// otherwise. Jobs and services receive it injected, never global.
	var policy cache.Source
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		policy = cache.NewRedis(redisClient.Client, configs, cache.DefaultTTL)
	} else {
		policy = cache.New(configs, cache.DefaultTTL)
	}

	var sender email.Sender
	if cfg.Email.SendGridAPIKey != "" {
		sender = email.NewSendGrid(cfg.Email)
	} else {
		log.Warn("no SENDGRID_API_KEY configured, recording emails in memory")
		sender = email.NewRecorder()
	}

	var auditlog audit.Publisher
	kafkaPublisher, err := audit.NewKafka(cfg.Kafka, log)
	if err != nil {
		log.Error("kafka unavailable", "error", err)
		os.Exit(1)
	}
	if kafkaPublisher != nil {
		auditlog = kafkaPublisher
	} else {
		auditlog = audit.NewMemory()
	}
	defer auditlog.Close()

	issuer := objectstore.NewHMACSigner(cfg.Uploads.BaseURL, cfg.Uploads.SigningSecret)

	// Services.
	certSvc := certservice.NewService(certs, policy, log)
	evidenceSvc := evidenceservice.NewService(evidence, certs, issuer, auditlog, m, log, cfg.Uploads.URLTTL)
	linkSvc := linkservice.NewService(links, certs, people, evidenceSvc, sender, auditlog, log, cfg.PublicBaseURL, cfg.Uploads.LinkTTL)
	cfgSvc := cfgservice.NewService(configs, log)

	// Jobs.
	sweep := sweeper.New(certs, policy, m, log)
	dispatch := dispatcher.New(certs, reminders, people, policy, sender, auditlog, m, log)

	sched := scheduler.New(log, m)
	if err := sched.Add(cfg.Jobs.SweepSchedule, "sweep", func(ctx context.Context) error {
		_, err := sweep.Sweep(ctx)
		return err
	}); err != nil {
		log.Error("schedule sweep", "error", err)
		os.Exit(1)
	}
	if err := sched.Add(cfg.Jobs.DispatchSchedule, "dispatch", func(ctx context.Context) error {
		_, err := dispatch.Dispatch(ctx)
		return err
	}); err != nil {
		log.Error("schedule dispatch", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Validator:      middleware.NewValidator(cfg.JWTSigningKey),
		Certifications: certhandler.New(certSvc, log),
		Evidence:       evidencehandler.New(evidenceSvc, log),
		Links:          linkhandler.New(linkSvc, log),
		TenantConfig:   cfghandler.New(cfgSvc, log),
		Readiness: func(ctx context.Context) error {
			if redisClient != nil {
				return redisClient.Health(ctx)
			}
			return nil
		},
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting certtrack", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sched.Start()
		<-gctx.Done()
		sched.Stop()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
