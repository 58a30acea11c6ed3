package comment

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/andrebq/lostminer/content"
	"github.com/andrebq/lostminer/internal/jsonio"
	"github.com/andrebq/lostminer/store"
)

type (
	Repository interface {
		Create(ctx context.Context, c store.Comment) (store.Comment, error)
		ByID(ctx context.Context, id int64) (store.Comment, error)
		ListByContent(ctx context.Context, contentID int64, page store.Page) ([]store.Comment, int, error)
		UpdateText(ctx context.Context, id int64, text string) (store.Comment, error)
		Delete(ctx context.Context, id int64) error
	}

	Contents interface {
		ByID(ctx context.Context, id int64) (store.Content, error)
	}

	Service struct {
		repo     Repository
		contents Contents
	}

	View struct {
		ID          int64          `json:"id"`
		ContentID   int64          `json:"content"`
		CreatedAt   time.Time      `json:"created_at"`
		Author      content.Author `json:"author"`
		Text        string         `json:"text"`
		AnsweringID *int64         `json:"answering"`
	}
)

const (
	DefaultPageSize = 35
)

var (
	errContentNotFound   = jsonio.NotFound("Content not found.")
	errAnsweringNotFound = jsonio.NotFound("Answering comment not found in this content.")
	errNotFound          = jsonio.NotFound("Comment not found.")
	errForbidden         = jsonio.Forbidden("You are not allowed to perform the operation on the requested comment.")
	errOnlyText          = jsonio.BadRequest("Only the 'text' field can be updated.")
)

func NewService(repo Repository, contents Contents) *Service {
	return &Service{repo: repo, contents: contents}
}

func Present(c store.Comment) View {
	return View{
		ID:          c.ID,
		ContentID:   c.ContentID,
		CreatedAt:   c.CreatedAt,
		Author:      content.FormatAuthor(c.Author),
		Text:        c.Text,
		AnsweringID: c.AnsweringID,
	}
}

func PresentAll(list []store.Comment) []View {
	out := make([]View, 0, len(list))
	for _, c := range list {
		out = append(out, Present(c))
	}
	return out
}

// Create adds a comment written by author to the given content, the
// optional answering field must point to a comment of the same content.
func (s *Service) Create(ctx context.Context, author store.User, contentID int64, body map[string]interface{}) (store.Comment, error) {
	if err := s.checkContent(ctx, contentID); err != nil {
		return store.Comment{}, err
	}
	text, err := decodeText(body)
	if err != nil {
		return store.Comment{}, err
	}
	answering, err := decodeAnswering(body)
	if err != nil {
		return store.Comment{}, err
	}
	c, err := s.repo.Create(ctx, store.Comment{
		ContentID:   contentID,
		Author:      store.Author{ID: author.ID, Username: author.Username},
		Text:        text,
		AnsweringID: answering,
	})
	if errors.As(err, &store.NotFound{}) {
		return store.Comment{}, errAnsweringNotFound
	} else if err != nil {
		return store.Comment{}, err
	}
	return c, nil
}

// List returns one page of comments of the content, oldest first
func (s *Service) List(ctx context.Context, contentID int64, page jsonio.PageRequest) ([]store.Comment, int, error) {
	list, total, err := s.repo.ListByContent(ctx, contentID, store.Page{Offset: page.Offset(), Limit: page.Size})
	if err != nil {
		return nil, 0, err
	}
	if err := page.Check(total); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Owned loads the comment and checks that user is its author
func (s *Service) Owned(ctx context.Context, user store.User, id int64) (store.Comment, error) {
	c, err := s.repo.ByID(ctx, id)
	if errors.As(err, &store.NotFound{}) {
		return store.Comment{}, errNotFound
	} else if err != nil {
		return store.Comment{}, err
	}
	if c.Author.ID != user.ID {
		return store.Comment{}, errForbidden
	}
	return c, nil
}

// Edit replaces the comment text, body must contain only the text field
func (s *Service) Edit(ctx context.Context, user store.User, id int64, body map[string]interface{}) (store.Comment, error) {
	if _, err := s.Owned(ctx, user, id); err != nil {
		return store.Comment{}, err
	}
	if _, found := body["text"]; !found || len(body) != 1 {
		return store.Comment{}, errOnlyText
	}
	text, err := decodeText(body)
	if err != nil {
		return store.Comment{}, err
	}
	c, err := s.repo.UpdateText(ctx, id, text)
	if errors.As(err, &store.NotFound{}) {
		return store.Comment{}, errNotFound
	} else if err != nil {
		return store.Comment{}, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, user store.User, id int64) error {
	if _, err := s.Owned(ctx, user, id); err != nil {
		return err
	}
	err := s.repo.Delete(ctx, id)
	if errors.As(err, &store.NotFound{}) {
		return errNotFound
	}
	return err
}

func (s *Service) checkContent(ctx context.Context, id int64) error {
	_, err := s.contents.ByID(ctx, id)
	if errors.As(err, &store.NotFound{}) {
		return errContentNotFound
	}
	return err
}

func decodeText(body map[string]interface{}) (string, error) {
	raw, found := body["text"]
	if !found {
		return "", jsonio.BadRequest("Some required fields are missing.").WithFields(map[string]string{"text": "This field is required."})
	}
	text, ok := raw.(string)
	if !ok {
		return "", jsonio.Unprocessable("Some of the fields are invalid.").WithFields(map[string]string{"text": "Not a valid string."})
	}
	if strings.TrimSpace(text) == "" {
		return "", jsonio.Unprocessable("Some of the fields are invalid.").WithFields(map[string]string{"text": "This field may not be blank."})
	}
	return text, nil
}

// decodeAnswering treats null, empty and zero values as no answer
func decodeAnswering(body map[string]interface{}) (*int64, error) {
	var id int64
	var err error
	switch v := body["answering"].(type) {
	case nil:
		return nil, nil
	case json.Number:
		id, err = v.Int64()
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		id, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		err = errors.New("not an integer")
	}
	if err != nil {
		return nil, jsonio.Unprocessable("Some of the fields are invalid.").WithFields(map[string]string{"answering": "A valid integer is required."})
	}
	if id == 0 {
		return nil, nil
	}
	return &id, nil
}
