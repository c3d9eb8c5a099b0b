package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiwari-pos/orderdesk/internal/cache"
	"github.com/kiwari-pos/orderdesk/internal/config"
	"github.com/kiwari-pos/orderdesk/internal/events"
	"github.com/kiwari-pos/orderdesk/internal/handler"
	"github.com/kiwari-pos/orderdesk/internal/logger"
	"github.com/kiwari-pos/orderdesk/internal/router"
	"github.com/kiwari-pos/orderdesk/internal/service"
	"github.com/kiwari-pos/orderdesk/internal/store"
	"github.com/kiwari-pos/orderdesk/internal/ticket"
	"github.com/kiwari-pos/orderdesk/internal/ws"
	"go.uber.org/zap"
)

// orderStore is what the server needs from either storage backend.
type orderStore interface {
	service.OrderStore
	handler.OrderLister
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer lg.Sync()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer closeStore()

	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	reportCache := cache.New[string, any](cfg.ReportTTL, nil)

	var printer ticket.Printer
	if cfg.PrintSpoolDir != "" {
		sp, err := ticket.NewSpoolPrinter(cfg.PrintSpoolDir)
		if err != nil {
			return err
		}
		printer = sp
		lg.Info("spooling tickets", zap.String("dir", cfg.PrintSpoolDir))
	}
	formatter := ticket.NewFormatter(printer, loc, cfg.Currency, lg.Named("ticket"))

	reports := handler.NewReportsHandler(st, reportCache, loc, lg.Named("reports"))
	publishers := []events.Publisher{events.NewHubPublisher(hub), reports}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		defer kp.Close()
		publishers = append(publishers, kp)
		lg.Info("publishing events to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	statusSvc := service.NewStatusService(st,
		service.WithNotifier(events.NewFanout(publishers...)),
		service.WithLogger(lg.Named("status")),
		service.WithBatchConcurrency(cfg.BatchLimit),
	)
	orders := handler.NewOrdersHandler(st, statusSvc, formatter, loc, lg.Named("orders"))

	r := router.New(router.Deps{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Orders:      orders,
		Reports:     reports,
		Hub:         hub,
		Logger:      lg,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore connects to Postgres when DATABASE_URL is set, running pending
// migrations first. Otherwise it serves demo orders from memory.
func openStore(ctx context.Context, cfg *config.Config, lg *zap.Logger) (orderStore, func(), error) {
	if cfg.DatabaseURL == "" {
		mem, err := store.NewMemory(store.DemoOrders(time.Now())...)
		if err != nil {
			return nil, nil, fmt.Errorf("load demo orders: %w", err)
		}
		lg.Warn("DATABASE_URL not set, using in-memory store with demo orders")
		return mem, func() {}, nil
	}

	if err := store.Migrate(cfg.DatabaseURL); err != nil {
		return nil, nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	lg.Info("connected to database")
	return store.NewPostgres(pool), pool.Close, nil
}

var (
	_ orderStore = (*store.Memory)(nil)
	_ orderStore = (*store.Postgres)(nil)
)
