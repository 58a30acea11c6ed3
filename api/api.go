package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andrebq/lostminer/auth"
	authapi "github.com/andrebq/lostminer/auth/api"
	"github.com/andrebq/lostminer/comment"
	commentapi "github.com/andrebq/lostminer/comment/api"
	"github.com/andrebq/lostminer/content"
	contentapi "github.com/andrebq/lostminer/content/api"
	"github.com/andrebq/lostminer/internal/imagestore"
	"github.com/andrebq/lostminer/internal/jsonio"
	"github.com/andrebq/lostminer/internal/logutil"
	"github.com/andrebq/lostminer/store"
	"github.com/julienschmidt/httprouter"
)

type (
	Config struct {
		Store    *store.Store
		Codes    auth.CodeStore
		Tokens   *auth.TokenCodec
		Mailer   auth.Mailer
		Uploader imagestore.Uploader

		ConnectionTTL  time.Duration
		SingleUseCodes bool

		// Clock and Random are replaced by tests
		Clock  func() time.Time
		Random io.Reader
	}
)

// AsHandler wires every service on top of the store and returns the
// http.Handler that serves the whole API.
func AsHandler(ctx context.Context, cfg Config) (http.Handler, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("api: store is required")
	case cfg.Codes == nil:
		return nil, errors.New("api: code store is required")
	case cfg.Tokens == nil:
		return nil, errors.New("api: token codec is required")
	case cfg.Mailer == nil:
		return nil, errors.New("api: mailer is required")
	}
	registry := auth.NewRegistry(cfg.Store.Connections(), cfg.ConnectionTTL, cfg.Clock)
	authSvc := auth.NewService(auth.Config{
		Users:          cfg.Store.Users(),
		Registry:       registry,
		Codes:          cfg.Codes,
		Tokens:         cfg.Tokens,
		Mailer:         cfg.Mailer,
		SingleUseCodes: cfg.SingleUseCodes,
		Random:         cfg.Random,
	})
	contentSvc := content.NewService(cfg.Store.Contents(), cfg.Uploader)
	commentSvc := comment.NewService(cfg.Store.Comments(), cfg.Store.Contents())
	realm := authapi.NewRealm(authSvc)

	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonio.WriteError(w, r, jsonio.NotFound("Not found."))
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonio.WriteError(w, r, jsonio.Problem{
			Status:  http.StatusMethodNotAllowed,
			Message: fmt.Sprintf("Method %q not allowed.", r.Method),
		})
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		jsonio.WriteError(w, r, fmt.Errorf("panic while handling request: %v", v))
	}

	authapi.Mount(router, "/auth", authSvc, realm)
	contentapi.Mount(router, "/contents", contentSvc, realm)
	commentapi.Mount(router, "/comments", commentSvc, realm)

	return logutil.Middleware(logutil.GetOrDefault(ctx), router), nil
}
