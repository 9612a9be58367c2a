package storage

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/artpar/schemagate/core/convention"
)

// Failover wraps a primary Store with the in-memory fallback. Any
// operation that hits a backend-level failure (ErrUnavailable) is
// retried against the fallback and the store stays degraded from then
// on: the scaffold keeps serving in disconnected mode rather than
// failing requests. Domain errors (not found, conflict, constraint)
// pass through untouched and never trip the switch.
type Failover struct {
	primary   Store
	fallback  Store
	logger    zerolog.Logger
	degraded  atomic.Bool
	onDegrade func()
}

// NewFailover creates a failover store. A nil primary starts degraded.
func NewFailover(primary Store, fallback Store, logger zerolog.Logger) *Failover {
	f := &Failover{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
	if primary == nil {
		f.degraded.Store(true)
	}
	return f
}

// OnDegrade registers a callback invoked once, when the primary first
// becomes unavailable. Set before serving traffic.
func (f *Failover) OnDegrade(fn func()) {
	f.onDegrade = fn
}

// Degraded reports whether operations are being served by the fallback.
func (f *Failover) Degraded() bool {
	return f.degraded.Load()
}

// active returns the store operations should run against.
func (f *Failover) active() Store {
	if f.degraded.Load() {
		return f.fallback
	}
	return f.primary
}

// degrade marks the primary unreachable and logs the switch once.
func (f *Failover) degrade(err error) {
	if f.degraded.CompareAndSwap(false, true) {
		f.logger.Warn().Err(err).Msg("primary store unavailable, switching to in-memory fallback")
		if f.onDegrade != nil {
			f.onDegrade()
		}
	}
}

func (f *Failover) EnsureCollection(ctx context.Context, m *convention.Model) error {
	if err := f.active().EnsureCollection(ctx, m); err != nil {
		if !errors.Is(err, ErrUnavailable) {
			return err
		}
		f.degrade(err)
		return f.fallback.EnsureCollection(ctx, m)
	}
	return nil
}

func (f *Failover) Create(ctx context.Context, m *convention.Model, data map[string]any) (map[string]any, error) {
	record, err := f.active().Create(ctx, m, data)
	if err != nil && errors.Is(err, ErrUnavailable) {
		f.degrade(err)
		return f.fallback.Create(ctx, m, data)
	}
	return record, err
}

func (f *Failover) Get(ctx context.Context, m *convention.Model, field string, value any) (map[string]any, error) {
	record, err := f.active().Get(ctx, m, field, value)
	if err != nil && errors.Is(err, ErrUnavailable) {
		f.degrade(err)
		return f.fallback.Get(ctx, m, field, value)
	}
	return record, err
}

func (f *Failover) List(ctx context.Context, m *convention.Model, opts ListOptions) ([]map[string]any, int64, error) {
	records, total, err := f.active().List(ctx, m, opts)
	if err != nil && errors.Is(err, ErrUnavailable) {
		f.degrade(err)
		return f.fallback.List(ctx, m, opts)
	}
	return records, total, err
}

func (f *Failover) Update(ctx context.Context, m *convention.Model, id string, data map[string]any) (map[string]any, error) {
	record, err := f.active().Update(ctx, m, id, data)
	if err != nil && errors.Is(err, ErrUnavailable) {
		f.degrade(err)
		return f.fallback.Update(ctx, m, id, data)
	}
	return record, err
}

func (f *Failover) Delete(ctx context.Context, m *convention.Model, id string) error {
	err := f.active().Delete(ctx, m, id)
	if err != nil && errors.Is(err, ErrUnavailable) {
		f.degrade(err)
		return f.fallback.Delete(ctx, m, id)
	}
	return err
}

func (f *Failover) Ping(ctx context.Context) error {
	return f.active().Ping(ctx)
}

// Kind reports the backend actually serving requests; health exposes
// this as "connected" vs "memory".
func (f *Failover) Kind() string {
	return f.active().Kind()
}

func (f *Failover) Close() error {
	if f.primary != nil {
		return f.primary.Close()
	}
	return nil
}

// Ensure interface compliance.
var _ Store = (*Failover)(nil)
