package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type (
	Comments struct {
		db  *sql.DB
		now func() time.Time
	}
)

const commentSelect = `select c.comment_id, c.content_id, c.created_at, c.author_id, u.username, c.text, c.answering_id
	from comments c
	inner join users u on u.user_id = c.author_id`

func scanComment(row interface{ Scan(...interface{}) error }) (Comment, error) {
	var c Comment
	var created int64
	var answering sql.NullInt64
	err := row.Scan(&c.ID, &c.ContentID, &created, &c.Author.ID, &c.Author.Username, &c.Text, &answering)
	if err != nil {
		return Comment{}, err
	}
	c.CreatedAt = fromUnix(created)
	if answering.Valid {
		c.AnsweringID = &answering.Int64
	}
	return c, nil
}

// Create stores the comment. An answered comment must belong to the same
// content, otherwise NotFound is returned for the answered comment.
func (c *Comments) Create(ctx context.Context, comment Comment) (Comment, error) {
	if comment.AnsweringID != nil {
		_, err := c.InContent(ctx, *comment.AnsweringID, comment.ContentID)
		if err != nil {
			return Comment{}, err
		}
	}
	var id int64
	err := c.db.QueryRowContext(ctx, `insert into comments(content_id, created_at, author_id, text, answering_id)
		values (?, ?, ?, ?, ?) returning comment_id`,
		comment.ContentID, toUnix(c.now()), comment.Author.ID, comment.Text, nullInt(comment.AnsweringID)).Scan(&id)
	if err != nil {
		return Comment{}, fmt.Errorf("unable to create comment on content %v, cause %w", comment.ContentID, err)
	}
	return c.ByID(ctx, id)
}

func (c *Comments) ByID(ctx context.Context, id int64) (Comment, error) {
	comment, err := scanComment(c.db.QueryRowContext(ctx, commentSelect+` where c.comment_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Comment{}, NotFound{Entity: "comment", ID: id}
	} else if err != nil {
		return Comment{}, fmt.Errorf("unable to load comment %v, cause %w", id, err)
	}
	return comment, nil
}

// InContent loads the comment only if it belongs to the given content
func (c *Comments) InContent(ctx context.Context, id, contentID int64) (Comment, error) {
	comment, err := scanComment(c.db.QueryRowContext(ctx, commentSelect+` where c.comment_id = ? and c.content_id = ?`, id, contentID))
	if errors.Is(err, sql.ErrNoRows) {
		return Comment{}, NotFound{Entity: "comment", ID: id}
	} else if err != nil {
		return Comment{}, fmt.Errorf("unable to load comment %v, cause %w", id, err)
	}
	return comment, nil
}

// ListByContent returns one page of the content comments, oldest first,
// plus the total number of comments on that content.
func (c *Comments) ListByContent(ctx context.Context, contentID int64, page Page) ([]Comment, int, error) {
	var total int
	err := c.db.QueryRowContext(ctx, `select count(1) from comments where content_id = ?`, contentID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to count comments of content %v, cause %w", contentID, err)
	}
	rows, err := c.db.QueryContext(ctx, commentSelect+` where c.content_id = ? order by c.created_at asc, c.comment_id asc limit ? offset ?`,
		contentID, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to list comments of content %v, cause %w", contentID, err)
	}
	defer rows.Close()
	out := []Comment{}
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("unable to list comments of content %v, cause %w", contentID, err)
		}
		out = append(out, comment)
	}
	return out, total, rows.Err()
}

func (c *Comments) UpdateText(ctx context.Context, id int64, text string) (Comment, error) {
	res, err := c.db.ExecContext(ctx, `update comments set text = ? where comment_id = ?`, text, id)
	if err != nil {
		return Comment{}, fmt.Errorf("unable to update comment %v, cause %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Comment{}, NotFound{Entity: "comment", ID: id}
	}
	return c.ByID(ctx, id)
}

func (c *Comments) Delete(ctx context.Context, id int64) error {
	res, err := c.db.ExecContext(ctx, `delete from comments where comment_id = ?`, id)
	if err != nil {
		return fmt.Errorf("unable to delete comment %v, cause %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFound{Entity: "comment", ID: id}
	}
	return nil
}
