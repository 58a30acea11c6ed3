package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type (
	Contents struct {
		db  *sql.DB
		now func() time.Time
	}
)

var (
	contentOrderings = map[string]string{
		"created_at": "c.created_at",
		"name":       "c.name",
	}
)

const contentSelect = `select c.content_id, c.name, c.description, c.author_id, u.username,
	c.category, c.version, c.created_at, c.resolution, c.download_url, c.images_urls
	from contents c
	inner join users u on u.user_id = c.author_id`

// ValidContentOrdering reports whether field can be used to sort contents
func ValidContentOrdering(field string) bool {
	_, ok := contentOrderings[field]
	return ok
}

func scanContent(row interface{ Scan(...interface{}) error }) (Content, error) {
	var c Content
	var description sql.NullString
	var resolution sql.NullInt64
	var created int64
	var images string
	err := row.Scan(&c.ID, &c.Name, &description, &c.Author.ID, &c.Author.Username,
		&c.Category, &c.Version, &created, &resolution, &c.DownloadURL, &images)
	if err != nil {
		return Content{}, err
	}
	if description.Valid {
		c.Description = &description.String
	}
	if resolution.Valid {
		c.Resolution = &resolution.Int64
	}
	c.CreatedAt = fromUnix(created)
	c.ImagesURLs = map[string]string{}
	if images != "" {
		err = json.Unmarshal([]byte(images), &c.ImagesURLs)
		if err != nil {
			return Content{}, fmt.Errorf("invalid images_urls for content %v, cause %w", c.ID, err)
		}
	}
	return c, nil
}

func encodeImages(images map[string]string) (string, error) {
	if images == nil {
		images = map[string]string{}
	}
	buf, err := json.Marshal(images)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

// Create stores a new content, CreatedAt and ID are filled by the store.
func (c *Contents) Create(ctx context.Context, content Content) (Content, error) {
	err := c.checkDownloadURL(ctx, content.DownloadURL, 0)
	if err != nil {
		return Content{}, err
	}
	images, err := encodeImages(content.ImagesURLs)
	if err != nil {
		return Content{}, fmt.Errorf("unable to encode images of content %v, cause %w", content.Name, err)
	}
	var id int64
	err = c.db.QueryRowContext(ctx, `insert into contents(name, description, author_id, category, version,
		created_at, resolution, download_url, download_url_hash64, images_urls)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) returning content_id`,
		content.Name, nullString(content.Description), content.Author.ID, string(content.Category), content.Version,
		toUnix(c.now()), nullInt(content.Resolution), content.DownloadURL, hashURL(content.DownloadURL), images).Scan(&id)
	if err != nil {
		if conflict, ok := conflictOf(err, "content"); ok {
			return Content{}, conflict
		}
		return Content{}, fmt.Errorf("unable to create content %v, cause %w", content.Name, err)
	}
	return c.ByID(ctx, id)
}

// checkDownloadURL returns a Conflict if a content other than self
// already uses the given download url.
func (c *Contents) checkDownloadURL(ctx context.Context, url string, self int64) error {
	existing, err := c.ByDownloadURL(ctx, url)
	if errors.As(err, &NotFound{}) {
		return nil
	} else if err != nil {
		return err
	}
	if existing.ID != self {
		return Conflict{Entity: "content", Fields: []string{"download_url"}}
	}
	return nil
}

func (c *Contents) ByID(ctx context.Context, id int64) (Content, error) {
	content, err := scanContent(c.db.QueryRowContext(ctx, contentSelect+` where c.content_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Content{}, NotFound{Entity: "content", ID: id}
	} else if err != nil {
		return Content{}, fmt.Errorf("unable to load content %v, cause %w", id, err)
	}
	return content, nil
}

func (c *Contents) ByDownloadURL(ctx context.Context, url string) (Content, error) {
	content, err := scanContent(c.db.QueryRowContext(ctx, contentSelect+` where c.download_url_hash64 = ? and c.download_url = ?`, hashURL(url), url))
	if errors.Is(err, sql.ErrNoRows) {
		return Content{}, NotFound{Entity: "content", ID: url}
	} else if err != nil {
		return Content{}, fmt.Errorf("unable to load content by download url, cause %w", err)
	}
	return content, nil
}

// List returns one page of contents plus the total number of contents
func (c *Contents) List(ctx context.Context, order Ordering, page Page) ([]Content, int, error) {
	var total int
	err := c.db.QueryRowContext(ctx, `select count(1) from contents`).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to count contents, cause %w", err)
	}
	column, ok := contentOrderings[order.Field]
	if !ok {
		column = contentOrderings["created_at"]
	}
	dir := "asc"
	if order.Desc {
		dir = "desc"
	}
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`%v order by %v %v, c.content_id %v limit ? offset ?`, contentSelect, column, dir, dir),
		page.Limit, page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to list contents, cause %w", err)
	}
	defer rows.Close()
	out := []Content{}
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("unable to list contents, cause %w", err)
		}
		out = append(out, content)
	}
	return out, total, rows.Err()
}

// Update replaces every editable field of the content with the given ID.
func (c *Contents) Update(ctx context.Context, content Content) (Content, error) {
	err := c.checkDownloadURL(ctx, content.DownloadURL, content.ID)
	if err != nil {
		return Content{}, err
	}
	images, err := encodeImages(content.ImagesURLs)
	if err != nil {
		return Content{}, fmt.Errorf("unable to encode images of content %v, cause %w", content.ID, err)
	}
	res, err := c.db.ExecContext(ctx, `update contents set name = ?, description = ?, author_id = ?, category = ?, version = ?,
		resolution = ?, download_url = ?, download_url_hash64 = ?, images_urls = ?
		where content_id = ?`,
		content.Name, nullString(content.Description), content.Author.ID, string(content.Category), content.Version,
		nullInt(content.Resolution), content.DownloadURL, hashURL(content.DownloadURL), images, content.ID)
	if err != nil {
		if conflict, ok := conflictOf(err, "content"); ok {
			return Content{}, conflict
		}
		return Content{}, fmt.Errorf("unable to update content %v, cause %w", content.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Content{}, NotFound{Entity: "content", ID: content.ID}
	}
	return c.ByID(ctx, content.ID)
}

// MergeImages adds (or replaces) the given image urls on the content
func (c *Contents) MergeImages(ctx context.Context, id int64, images map[string]string) (Content, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return Content{}, fmt.Errorf("unable to update images of content %v, cause %w", id, err)
	}
	defer tx.Rollback()
	var raw string
	err = tx.QueryRowContext(ctx, `select images_urls from contents where content_id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Content{}, NotFound{Entity: "content", ID: id}
	} else if err != nil {
		return Content{}, fmt.Errorf("unable to load images of content %v, cause %w", id, err)
	}
	current := map[string]string{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &current); err != nil {
			return Content{}, fmt.Errorf("invalid images_urls for content %v, cause %w", id, err)
		}
	}
	for k, v := range images {
		current[k] = v
	}
	encoded, err := encodeImages(current)
	if err != nil {
		return Content{}, fmt.Errorf("unable to encode images of content %v, cause %w", id, err)
	}
	_, err = tx.ExecContext(ctx, `update contents set images_urls = ? where content_id = ?`, encoded, id)
	if err != nil {
		return Content{}, fmt.Errorf("unable to update images of content %v, cause %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return Content{}, fmt.Errorf("unable to update images of content %v, cause %w", id, err)
	}
	return c.ByID(ctx, id)
}

func (c *Contents) Delete(ctx context.Context, id int64) error {
	res, err := c.db.ExecContext(ctx, `delete from contents where content_id = ?`, id)
	if err != nil {
		return fmt.Errorf("unable to delete content %v, cause %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return NotFound{Entity: "content", ID: id}
	}
	return nil
}
