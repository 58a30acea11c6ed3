package auth

import (
	"context"
	"errors"
	"time"

	"github.com/andrebq/lostminer/store"
)

type (
	Connections interface {
		Create(ctx context.Context, userID int64) (store.Connection, error)
		ByID(ctx context.Context, id int64) (store.Connection, error)
		Delete(ctx context.Context, id int64) error
	}

	// Registry hands out connections and decides whether they are still valid
	Registry struct {
		conns Connections
		ttl   time.Duration
		now   func() time.Time
	}

	// InvalidConnection is returned when a connection does not exist or expired
	InvalidConnection struct {
		ID      int64
		Expired bool
	}
)

const (
	DefaultConnectionTTL = 24 * time.Hour
)

func (i InvalidConnection) Error() string {
	if i.Expired {
		return "connection expired"
	}
	return "connection not found"
}

func NewRegistry(conns Connections, ttl time.Duration, clock func() time.Time) *Registry {
	if ttl <= 0 {
		ttl = DefaultConnectionTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &Registry{conns: conns, ttl: ttl, now: clock}
}

func (r *Registry) Create(ctx context.Context, userID int64) (store.Connection, error) {
	return r.conns.Create(ctx, userID)
}

// Resolve returns the connection if it exists and is younger than the TTL.
// Expired connections are deleted before InvalidConnection is returned.
func (r *Registry) Resolve(ctx context.Context, id int64) (store.Connection, error) {
	conn, err := r.conns.ByID(ctx, id)
	if errors.As(err, &store.NotFound{}) {
		return store.Connection{}, InvalidConnection{ID: id}
	} else if err != nil {
		return store.Connection{}, err
	}
	if r.now().After(conn.CreatedAt.Add(r.ttl)) {
		if err := r.conns.Delete(ctx, conn.ID); err != nil {
			return store.Connection{}, err
		}
		return store.Connection{}, InvalidConnection{ID: id, Expired: true}
	}
	return conn, nil
}

func (r *Registry) Revoke(ctx context.Context, id int64) error {
	return r.conns.Delete(ctx, id)
}
