package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	caseshandler "caseflow/internal/cases/handler"
	casesservice "caseflow/internal/cases/service"
	casesstore "caseflow/internal/cases/store"
	dockethandler "caseflow/internal/docket/handler"
	docketservice "caseflow/internal/docket/service"
	docketstore "caseflow/internal/docket/store"
	documenthandler "caseflow/internal/document/handler"
	documentservice "caseflow/internal/document/service"
	documentstore "caseflow/internal/document/store"
	eventhandler "caseflow/internal/event/handler"
	eventservice "caseflow/internal/event/service"
	filinghandler "caseflow/internal/filing/handler"
	filingservice "caseflow/internal/filing/service"
	filingstore "caseflow/internal/filing/store"
	nefhandler "caseflow/internal/nef/handler"
	nefservice "caseflow/internal/nef/service"
	nefstore "caseflow/internal/nef/store"
	"caseflow/internal/notify"
	notifystore "caseflow/internal/notify/store"
	"caseflow/internal/platform/config"
	"caseflow/internal/platform/httpserver"
	"caseflow/internal/platform/logger"
	"caseflow/internal/platform/metrics"
	"caseflow/internal/platform/middleware"
	"caseflow/internal/platform/postgres"
	platformredis "caseflow/internal/platform/redis"
	srhandler "caseflow/internal/servicerecord/handler"
	srservice "caseflow/internal/servicerecord/service"
	srstore "caseflow/internal/servicerecord/store"
	"caseflow/internal/storage"
	"caseflow/pkg/platform/tx"
)

// main wires stores, services, and handlers; business logic lives in the
// internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		log.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	gateway, err := storage.NewMinioGateway(ctx, cfg.Storage)
	if err != nil {
		log.Error("object storage connect failed", "error", err)
		os.Exit(1)
	}

	cache, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer cache.Close()
	}

	m := metrics.New()
	runner := tx.NewSQLRunner(db)

	caseStore := casesstore.NewPostgresCaseStore(db)
	partyStore := casesstore.NewPostgresPartyStore(db)
	docketStore := docketstore.NewPostgresStore(db)
	documentStore := documentstore.NewPostgresStore(db)
	filingStore := filingstore.NewPostgresStore(db)
	recordStore := srstore.NewPostgresStore(db)
	nefStore := nefstore.NewPostgresStore(db)
	outboxStore := notifystore.NewPostgresStore(db)

	docketSvc := docketservice.NewService(docketStore, caseStore, gateway, runner,
		docketservice.WithLogger(log), docketservice.WithMetrics(m))
	documentSvc := documentservice.NewService(documentStore, docketStore, filingStore, runner,
		documentservice.WithLogger(log), documentservice.WithMetrics(m))
	nefSvc := nefservice.NewService(nefStore,
		nefservice.WithLogger(log), nefservice.WithMetrics(m), nefservice.WithCache(cache))
	recordSvc := srservice.NewService(recordStore, documentStore, partyStore,
		srservice.WithLogger(log))
	filingSvc := filingservice.NewService(filingservice.Deps{
		Store:     filingStore,
		Documents: documentStore,
		Cases:     caseStore,
		Parties:   partyStore,
		Records:   recordStore,
		Docket:    docketSvc,
		Nefs:      nefSvc,
		Outbox:    outboxStore,
		Gateway:   gateway,
		Runner:    runner,
	}, filingservice.WithLogger(log), filingservice.WithMetrics(m))
	casesSvc := casesservice.NewService(caseStore, docketStore, documentStore, nefStore,
		casesservice.WithLogger(log))
	dispatcher := eventservice.NewDispatcher(docketSvc, filingSvc, documentSvc,
		eventservice.WithLogger(log))

	// NEF delivery: outbox rows are published to Kafka when brokers are
	// configured, otherwise logged and dropped.
	var publisher notify.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err = notify.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka connect failed", "error", err)
			os.Exit(1)
		}
	} else {
		publisher = notify.NewLogPublisher(log)
	}
	defer publisher.Close()

	relay := notify.NewRelay(outboxStore, publisher, runner, log)
	go relay.Run(ctx)

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(middleware.Recovery(log))
		r.Use(middleware.RequestID)
		r.Use(middleware.RequestTime)
		r.Use(middleware.Actor)
		r.Use(middleware.RequireTenant(log))
		r.Use(middleware.Logger(log))
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Latency(m))

		eventhandler.New(dispatcher, log, m).Register(r)
		filinghandler.New(filingSvc, log, m).Register(r)
		documenthandler.New(documentSvc, log, m).Register(r)
		nefhandler.New(nefSvc, log, m).Register(r)
		srhandler.New(recordSvc, log, m).Register(r)
		dockethandler.New(docketSvc, log, m).Register(r)
		caseshandler.New(casesSvc, log, m).Register(r)
	})

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("caseflow listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
