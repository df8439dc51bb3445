package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	domainDevice "iot-posture-monitor/internal/domain/device"
	"iot-posture-monitor/internal/logger"
)

const (
	defaultRetryInitial = 50 * time.Millisecond
	defaultRetryMax     = time.Second
)

type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// RetryingRepository retries operations of the wrapped repository that fail
// with a transient backend error. Not-found and other errors return at once.
type RetryingRepository struct {
	next   domainDevice.Repository
	policy RetryPolicy
}

func NewRetryingRepository(next domainDevice.Repository, policy RetryPolicy) *RetryingRepository {
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = defaultRetryInitial
	}
	if policy.MaxInterval <= 0 {
		policy.MaxInterval = defaultRetryMax
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &RetryingRepository{next: next, policy: policy}
}

var _ domainDevice.Repository = (*RetryingRepository)(nil)

func (r *RetryingRepository) Create(ctx context.Context, d *domainDevice.Device) error {
	return r.do(ctx, "create", func() error { return r.next.Create(ctx, d) })
}

func (r *RetryingRepository) GetByID(ctx context.Context, deviceID uint) (*domainDevice.Device, error) {
	return retry(ctx, r, "get", func() (*domainDevice.Device, error) { return r.next.GetByID(ctx, deviceID) })
}

func (r *RetryingRepository) List(ctx context.Context) ([]*domainDevice.Device, error) {
	return retry(ctx, r, "list", func() ([]*domainDevice.Device, error) { return r.next.List(ctx) })
}

func (r *RetryingRepository) UpdateFirmware(ctx context.Context, deviceID uint, version string) error {
	return r.do(ctx, "update_firmware", func() error { return r.next.UpdateFirmware(ctx, deviceID, version) })
}

func (r *RetryingRepository) TouchLastSeen(ctx context.Context, deviceID uint, at time.Time) error {
	return r.do(ctx, "touch_last_seen", func() error { return r.next.TouchLastSeen(ctx, deviceID, at) })
}

func (r *RetryingRepository) Count(ctx context.Context) (int64, error) {
	return retry(ctx, r, "count", func() (int64, error) { return r.next.Count(ctx) })
}

func (r *RetryingRepository) do(ctx context.Context, op string, fn func() error) error {
	_, err := retry(ctx, r, op, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

func retry[T any](ctx context.Context, r *RetryingRepository, op string, fn func() (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.policy.InitialInterval
	bo.MaxInterval = r.policy.MaxInterval

	operation := func() (T, error) {
		v, err := fn()
		if err != nil && !IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(r.policy.MaxRetries)+1),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Warn("Retrying device store operation",
				zap.String("operation", op),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		}),
	)
}

// IsTransient reports whether err is a backend failure worth retrying:
// a busy or locked sqlite file, a dropped or refused connection, or a
// postgres serialization conflict.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") ||
			pgErr.Code == "40001" || pgErr.Code == "40P01" || pgErr.Code == "57P03"
	}

	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, driver.ErrBadConn)
}
