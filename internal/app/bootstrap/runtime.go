// Package bootstrap builds the runtime collaborators shared by the binaries,
// choosing Postgres/Redis implementations when configured and in-memory ones otherwise.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/booking"
	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/internal/events"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/schedule"
	"github.com/wolfman30/clinic-scheduler/internal/scheduling"
	"github.com/wolfman30/clinic-scheduler/internal/services"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildScheduleStore returns the Redis schedule store, or an in-memory
// catalog seeded with the default clinic week when Redis is unavailable.
func BuildScheduleStore(redisClient *redis.Client) schedule.Editor {
	if redisClient == nil {
		return schedule.NewMemoryCatalog()
	}
	return schedule.NewRedisStore(redisClient)
}

// BuildServiceCatalog returns the SQL service catalog when a database is
// available. Without one, only the consultation service is known.
func BuildServiceCatalog(sqlDB *sql.DB, cfg *appconfig.Config) services.Catalog {
	if sqlDB != nil {
		return services.NewSQLCatalog(sqlDB)
	}
	catalog := services.NewMemoryCatalog()
	if cfg != nil && cfg.ConsultationServiceID != "" {
		catalog.PutService(services.Service{
			ID:       cfg.ConsultationServiceID,
			Name:     "Consultation",
			Duration: "30 minutes",
		})
	}
	return catalog
}

// OpenSQL exposes the pool through database/sql for the service catalog.
func OpenSQL(pool *pgxpool.Pool) *sql.DB {
	if pool == nil {
		return nil
	}
	return stdlib.OpenDBFromPool(pool)
}

// Stores groups the appointment store with the outbox feed it writes to.
type Stores struct {
	Appointments appointments.Store
	Outbox       events.Feed
}

// BuildStores returns Postgres-backed stores when pool is set, in-memory ones otherwise.
func BuildStores(pool *pgxpool.Pool) Stores {
	if pool != nil {
		return Stores{
			Appointments: appointments.NewPostgresStore(pool),
			Outbox:       events.NewOutboxStore(pool),
		}
	}
	outbox := events.NewMemoryOutbox()
	return Stores{
		Appointments: appointments.NewMemoryStore(outbox),
		Outbox:       outbox,
	}
}

// BuildBookingService wires the booking service. A nil redis client disables
// the snapshot cache and the date lock.
func BuildBookingService(cfg *appconfig.Config, stores Stores, catalog schedule.Catalog, serviceCatalog services.Catalog, redisClient *redis.Client, bookingMetrics *metrics.BookingMetrics, logger *logging.Logger) *booking.Service {
	if logger == nil {
		logger = logging.Default()
	}
	resolver := services.NewResolver(serviceCatalog, cfg.ConsultationServiceID, cfg.DefaultDurationMinutes, logger)
	svc := booking.NewService(stores.Appointments, catalog, resolver, booking.Options{
		Limits: scheduling.Limits{
			StepMinutes:  cfg.SlotStepMinutes,
			SlotCapacity: cfg.SlotCapacity,
			DayCapacity:  cfg.DayCapacity,
		},
		MaxAttempts:    cfg.BookingMaxAttempts,
		RetryBaseDelay: cfg.BookingRetryBaseDelay,
		Location:       cfg.Location(),
	}, logger).WithMetrics(bookingMetrics)

	if redisClient != nil {
		svc.WithSnapshotCache(appointments.NewSnapshotCache(redisClient, stores.Appointments, cfg.AvailabilityCacheTTL, logger)).
			WithLocker(booking.NewRedisDateLocker(redisClient, cfg.BookingLockTTL, cfg.BookingLockTTL, logger))
		logger.Info("booking cache and date lock enabled")
	}
	return svc
}
