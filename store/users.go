package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type (
	Users struct {
		db    *sql.DB
		model ContentModel
	}
)

const userColumns = `user_id, username, email, is_creator, password`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var u User
	var passwd sql.NullString
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.IsCreator, &passwd)
	if err != nil {
		return User{}, err
	}
	u.PasswordHash = passwd.String
	return u, nil
}

func (u *Users) Create(ctx context.Context, username, email string) (User, error) {
	row := u.db.QueryRowContext(ctx, `insert into users(username, email) values (?, ?) returning `+userColumns, username, email)
	usr, err := scanUser(row)
	if err != nil {
		if conflict, ok := conflictOf(err, "user"); ok {
			return User{}, conflict
		}
		return User{}, fmt.Errorf("unable to create user %v, cause %w", email, err)
	}
	return usr, nil
}

func (u *Users) ByID(ctx context.Context, id int64) (User, error) {
	usr, err := scanUser(u.db.QueryRowContext(ctx, `select `+userColumns+` from users where user_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, NotFound{Entity: "user", ID: id}
	} else if err != nil {
		return User{}, fmt.Errorf("unable to load user %v, cause %w", id, err)
	}
	return usr, nil
}

func (u *Users) ByEmail(ctx context.Context, email string) (User, error) {
	usr, err := scanUser(u.db.QueryRowContext(ctx, `select `+userColumns+` from users where email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, NotFound{Entity: "user", ID: email}
	} else if err != nil {
		return User{}, fmt.Errorf("unable to load user %v, cause %w", email, err)
	}
	return usr, nil
}

func (u *Users) EmailExists(ctx context.Context, email string) (bool, error) {
	var found int
	err := u.db.QueryRowContext(ctx, `select count(1) from users where email = ?`, email).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("unable to check email %v, cause %w", email, err)
	}
	return found > 0, nil
}

func (u *Users) SetPassword(ctx context.Context, id int64, hash string) error {
	return u.update(ctx, id, `update users set password = ? where user_id = ?`, hash, id)
}

func (u *Users) SetCreator(ctx context.Context, id int64, creator bool) error {
	return u.update(ctx, id, `update users set is_creator = ? where user_id = ?`, creator, id)
}

func (u *Users) update(ctx context.Context, id int64, stmt string, args ...interface{}) error {
	res, err := u.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("unable to update user %v, cause %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to update user %v, cause %w", id, err)
	} else if n == 0 {
		return NotFound{Entity: "user", ID: id}
	}
	return nil
}

// Delete removes the user and their connections. Contents written by the user
// are removed or protect the user depending on the content model, comments
// always protect the user.
func (u *Users) Delete(ctx context.Context, id int64) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to delete user %v, cause %w", id, err)
	}
	defer tx.Rollback()

	var comments, contents int
	err = tx.QueryRowContext(ctx, `select
		(select count(1) from comments where author_id = ?),
		(select count(1) from contents where author_id = ?)`, id, id).Scan(&comments, &contents)
	if err != nil {
		return fmt.Errorf("unable to delete user %v, cause %w", id, err)
	}
	if comments > 0 {
		return InUse{Entity: "user", By: "comments"}
	}
	if contents > 0 {
		if u.model == IndependentUnique {
			return InUse{Entity: "user", By: "contents"}
		}
		_, err = tx.ExecContext(ctx, `delete from contents where author_id = ?`, id)
		if err != nil {
			return fmt.Errorf("unable to delete contents of user %v, cause %w", id, err)
		}
	}
	res, err := tx.ExecContext(ctx, `delete from users where user_id = ?`, id)
	if err != nil {
		return fmt.Errorf("unable to delete user %v, cause %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFound{Entity: "user", ID: id}
	}
	return tx.Commit()
}
