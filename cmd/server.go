package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/app"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/clock"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/config"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/conflict"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/domain"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/flexroom"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/holdstore"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/lockmgr"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/storage/postgres"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/store"
	transporthttp "github.com/gonzalo0909/lapa-casa-hostel-sub001/internal/transport/http"
	"github.com/gonzalo0909/lapa-casa-hostel-sub001/migrations"
)

const shutdownTimeout = 10 * time.Second

func newServerCmd() *cobra.Command {
	var runMigrations bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the booking engine API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to db: %w", err)
			}
			defer pool.Close()

			if err := pool.Ping(startupCtx); err != nil {
				return fmt.Errorf("db ping: %w", err)
			}
			if runMigrations {
				if err := migrations.Apply(startupCtx, pool); err != nil {
					return err
				}
			}

			clk := clock.NewSystem()
			kv, pingers, err := newStore(cfg, clk, logger)
			if err != nil {
				return err
			}
			pingers = append(pingers, pool)

			catalog := domain.DefaultCatalog()
			flexOpts := flexroom.Options{
				AutoConvertAfter: cfg.AutoConvertAfter(),
				ConversionNotice: cfg.ConversionNotice(),
			}

			bookingRepo := postgres.NewBookingRepository(pool)
			holds := holdstore.New(kv, clk,
				holdstore.WithHoldTTL(cfg.HoldTTL()),
				holdstore.WithConfirmedTTL(cfg.ConfirmedTTL()),
			)
			locks := lockmgr.NewManager(kv, clk, lockmgr.WithTTL(cfg.LockTTL()))
			detector := conflict.NewDetector(catalog, clk,
				conflict.WithOverbookingPct(cfg.AllowedOverbookingPct),
			)

			availabilitySvc := app.NewAvailabilityService(catalog, bookingRepo, holds, clk, logger,
				app.WithFlexOptions(flexOpts),
			)
			reservationSvc := app.NewReservationService(catalog, bookingRepo, holds, locks, detector, clk, logger,
				app.WithMaxAttempts(cfg.ReserveMaxAttempts),
				app.WithReservationFlexOptions(flexOpts),
			)

			mux := http.NewServeMux()
			mux.HandleFunc("/health", transporthttp.HealthHandler)
			mux.Handle("/ready", transporthttp.ReadyHandler(pingers...))
			mux.Handle("/availability", transporthttp.HandleAvailability(availabilitySvc))
			mux.Handle("/reservations", transporthttp.HandleReserve(reservationSvc))
			mux.Handle("/holds/", transporthttp.HandleHolds(reservationSvc, holds))
			mux.Handle("/rooms/flexible/convert", transporthttp.HandleConvertFlexRoom(availabilitySvc))
			mux.Handle("/", transporthttp.NotFoundHandler())

			handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)

			server := &http.Server{
				Addr:    cfg.Addr(),
				Handler: handler,
			}

			stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go runSweeper(stopCtx, cfg, logger, holds, locks, bookingRepo, clk)

			logger.WithField("addr", cfg.Addr()).Info("api listening")

			srvErr := make(chan error, 1)
			go func() {
				srvErr <- server.ListenAndServe()
			}()

			select {
			case err := <-srvErr:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-stopCtx.Done():
				logger.Info("shutdown signal received, stopping server")
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Warn("server shutdown error")
			}
			logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&runMigrations, "migrate", true, "run database migrations on startup")
	return cmd
}

func newLogger(cfg config.App) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.LogFile != "" {
		logger.SetOutput(&lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	return logger
}

// newStore picks the shared Redis table when configured, otherwise the
// in-memory one.
func newStore(cfg config.App, clk clock.Clock, logger *logrus.Logger) (store.Store, []transporthttp.Pinger, error) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, using in-memory store; holds and locks are not shared across replicas")
		return store.NewMemory(clk), nil, nil
	}
	r := store.NewRedis(cfg.RedisAddr, cfg.RedisDB)
	if err := r.Ping(); err != nil {
		return nil, nil, err
	}
	return r, []transporthttp.Pinger{redisPinger{r}}, nil
}

type redisPinger struct {
	r *store.Redis
}

func (p redisPinger) Ping(context.Context) error {
	return p.r.Ping()
}

// runSweeper periodically evicts expired holds and stale locks, and expires
// abandoned pending bookings.
func runSweeper(ctx context.Context, cfg config.App, logger logrus.FieldLogger, holds *holdstore.HoldStore, locks *lockmgr.Manager, bookings *postgres.BookingRepository, clk clock.Clock) {
	ticker := time.NewTicker(cfg.SweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		sweptHolds, err := holds.Sweep(sweepCtx)
		if err != nil {
			logger.WithError(err).Warn("hold sweep failed")
		}
		sweptLocks, err := locks.Sweep(sweepCtx)
		if err != nil {
			logger.WithError(err).Warn("lock sweep failed")
		}
		expired, err := bookings.ExpireStalePending(sweepCtx, clk.Now().Add(-cfg.StalePendingExpiry()))
		if err != nil {
			logger.WithError(err).Warn("stale booking expiry failed")
		}
		cancel()

		if sweptHolds > 0 || sweptLocks > 0 || expired > 0 {
			logger.WithFields(logrus.Fields{
				"holds":    sweptHolds,
				"locks":    sweptLocks,
				"bookings": expired,
			}).Info("sweep completed")
		}
	}
}
