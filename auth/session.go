package auth

import (
	"context"

	"github.com/andrebq/lostminer/store"
)

type (
	// Session is the authenticated identity attached to a request
	Session struct {
		Connection store.Connection
		User       store.User
	}

	sessionKey byte
)

var (
	currentSession = sessionKey(1)
)

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, currentSession, s)
}

func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(currentSession).(Session)
	return s, ok
}
