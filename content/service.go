package content

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/andrebq/lostminer/internal/imagestore"
	"github.com/andrebq/lostminer/internal/jsonio"
	"github.com/andrebq/lostminer/internal/logutil"
	"github.com/andrebq/lostminer/store"
)

type (
	Repository interface {
		Create(ctx context.Context, content store.Content) (store.Content, error)
		ByID(ctx context.Context, id int64) (store.Content, error)
		List(ctx context.Context, order store.Ordering, page store.Page) ([]store.Content, int, error)
		Update(ctx context.Context, content store.Content) (store.Content, error)
		MergeImages(ctx context.Context, id int64, images map[string]string) (store.Content, error)
		Delete(ctx context.Context, id int64) error
	}

	Service struct {
		repo     Repository
		uploader imagestore.Uploader
	}
)

const (
	// ImagesFolder is where content images are uploaded
	ImagesFolder = "contents"

	DefaultPageSize = 10
)

var (
	errNotFound     = jsonio.NotFound("Content not found.")
	errForbidden    = jsonio.Forbidden("You are not allowed to perform the operation on the requested content.")
	errNoImages     = jsonio.BadRequest("No images were sent.")
	errUploadsNotOn = jsonio.Problem{Status: http.StatusServiceUnavailable, Message: "Image uploads are not available."}
)

func NewService(repo Repository, uploader imagestore.Uploader) *Service {
	if uploader == nil {
		uploader = imagestore.Disabled()
	}
	return &Service{repo: repo, uploader: uploader}
}

// Create validates body and stores it as a new content written by author
func (s *Service) Create(ctx context.Context, author store.User, body map[string]interface{}) (store.Content, error) {
	c, err := decode(body, store.Content{}, false)
	if err != nil {
		return store.Content{}, err
	}
	c.Author = store.Author{ID: author.ID, Username: author.Username}
	c, err = s.repo.Create(ctx, c)
	if err != nil {
		return store.Content{}, translate(err)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id int64) (store.Content, error) {
	c, err := s.repo.ByID(ctx, id)
	if err != nil {
		return store.Content{}, translate(err)
	}
	return c, nil
}

// ParseOrdering reads a comma separated list of fields, each one optionally
// prefixed by '-', and returns the first one contents can be sorted by.
// Unknown fields are ignored and the default is the creation date.
func ParseOrdering(raw string) store.Ordering {
	for _, term := range strings.Split(raw, ",") {
		term = strings.TrimSpace(term)
		desc := strings.HasPrefix(term, "-")
		field := strings.TrimPrefix(term, "-")
		if store.ValidContentOrdering(field) {
			return store.Ordering{Field: field, Desc: desc}
		}
	}
	return store.Ordering{Field: "created_at"}
}

func (s *Service) List(ctx context.Context, order store.Ordering, page jsonio.PageRequest) ([]store.Content, int, error) {
	list, total, err := s.repo.List(ctx, order, store.Page{Offset: page.Offset(), Limit: page.Size})
	if err != nil {
		return nil, 0, err
	}
	if err := page.Check(total); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Owned loads the content and checks that user is its author
func (s *Service) Owned(ctx context.Context, user store.User, id int64) (store.Content, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return store.Content{}, err
	}
	if c.Author.ID != user.ID {
		return store.Content{}, errForbidden
	}
	return c, nil
}

// Update replaces the content fields with the ones in body, when partial
// is set only the fields present in body change.
func (s *Service) Update(ctx context.Context, user store.User, id int64, body map[string]interface{}, partial bool) (store.Content, error) {
	current, err := s.Owned(ctx, user, id)
	if err != nil {
		return store.Content{}, err
	}
	next, err := decode(body, current, partial)
	if err != nil {
		return store.Content{}, err
	}
	next.ID = current.ID
	next.Author = current.Author
	next, err = s.repo.Update(ctx, next)
	if err != nil {
		return store.Content{}, translate(err)
	}
	return next, nil
}

func (s *Service) Delete(ctx context.Context, user store.User, id int64) error {
	_, err := s.Owned(ctx, user, id)
	if err != nil {
		return err
	}
	return translate(s.repo.Delete(ctx, id))
}

// UploadImages uploads every image and records its url under the given
// name, images with a name already in use replace the previous url.
func (s *Service) UploadImages(ctx context.Context, user store.User, id int64, images map[string]imagestore.Image) (store.Content, error) {
	_, err := s.Owned(ctx, user, id)
	if err != nil {
		return store.Content{}, err
	}
	if len(images) == 0 {
		return store.Content{}, errNoImages
	}
	names := make([]string, 0, len(images))
	for name := range images {
		names = append(names, name)
	}
	sort.Strings(names)
	log := logutil.GetOrDefault(ctx)
	urls := make(map[string]string, len(images))
	for _, name := range names {
		url, err := s.uploader.Upload(ctx, ImagesFolder, images[name])
		if errors.Is(err, imagestore.ErrDisabled) {
			return store.Content{}, errUploadsNotOn
		} else if err != nil {
			return store.Content{}, fmt.Errorf("unable to upload image %v of content %v, cause %w", name, id, err)
		}
		log.Debug().Int64("content", id).Str("image", name).Str("url", url).Msg("Image uploaded")
		urls[name] = url
	}
	c, err := s.repo.MergeImages(ctx, id, urls)
	if err != nil {
		return store.Content{}, translate(err)
	}
	return c, nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var conflict store.Conflict
	if errors.As(err, &conflict) {
		fields := map[string]string{}
		for _, f := range conflict.Fields {
			fields[f] = fmt.Sprintf("Content with this %v already exists.", strings.ReplaceAll(f, "_", " "))
		}
		return jsonio.Conflict("Content already exists.").WithFields(fields)
	}
	if errors.As(err, &store.NotFound{}) {
		return errNotFound
	}
	return err
}
