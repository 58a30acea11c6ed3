package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type (
	Connections struct {
		db  *sql.DB
		now func() time.Time
	}
)

func (c *Connections) Create(ctx context.Context, userID int64) (Connection, error) {
	conn := Connection{UserID: userID, CreatedAt: c.now().UTC()}
	err := c.db.QueryRowContext(ctx, `insert into connections(created_at, user_id) values (?, ?) returning connection_id`,
		toUnix(conn.CreatedAt), userID).Scan(&conn.ID)
	if err != nil {
		return Connection{}, fmt.Errorf("unable to create connection for user %v, cause %w", userID, err)
	}
	return conn, nil
}

func (c *Connections) ByID(ctx context.Context, id int64) (Connection, error) {
	var conn Connection
	var created int64
	err := c.db.QueryRowContext(ctx, `select connection_id, created_at, user_id from connections where connection_id = ?`, id).
		Scan(&conn.ID, &created, &conn.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return Connection{}, NotFound{Entity: "connection", ID: id}
	} else if err != nil {
		return Connection{}, fmt.Errorf("unable to load connection %v, cause %w", id, err)
	}
	conn.CreatedAt = fromUnix(created)
	return conn, nil
}

// Delete removes the connection, deleting a missing connection is not an error.
func (c *Connections) Delete(ctx context.Context, id int64) error {
	_, err := c.db.ExecContext(ctx, `delete from connections where connection_id = ?`, id)
	if err != nil {
		return fmt.Errorf("unable to delete connection %v, cause %w", id, err)
	}
	return nil
}

func (c *Connections) CountForUser(ctx context.Context, userID int64) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `select count(1) from connections where user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("unable to count connections of user %v, cause %w", userID, err)
	}
	return n, nil
}
