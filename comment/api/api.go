package api

import (
	"net/http"
	"strconv"

	"github.com/andrebq/lostminer/auth"
	authapi "github.com/andrebq/lostminer/auth/api"
	"github.com/andrebq/lostminer/comment"
	"github.com/andrebq/lostminer/internal/jsonio"
	"github.com/julienschmidt/httprouter"
)

var (
	errContentNotFound = jsonio.NotFound("Content not found.")
	errNotFound        = jsonio.NotFound("Comment not found.")
)

// Mount registers the comment endpoints under prefix
func Mount(router *httprouter.Router, prefix string, svc *comment.Service, realm *authapi.Realm) {
	router.Handler("POST", prefix+"/:id/create", realm.Protect(create(svc)))
	router.HandlerFunc("GET", prefix+"/:id/list", list(svc))
	router.Handler("PUT", prefix+"/edit/:id", realm.Protect(edit(svc)))
	router.Handler("PATCH", prefix+"/edit/:id", realm.Protect(edit(svc)))
	router.Handler("DELETE", prefix+"/delete/:id", realm.Protect(remove(svc)))
}

func create(svc *comment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := auth.SessionFrom(r.Context())
		contentID, err := pathID(r, errContentNotFound)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		body, err := jsonio.DecodeObject(r)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		c, err := svc.Create(r.Context(), session.User, contentID, body)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		jsonio.Write(w, http.StatusCreated, comment.Present(c))
	}
}

func list(svc *comment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID, err := pathID(r, errContentNotFound)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		page, err := jsonio.ParsePage(r, comment.DefaultPageSize)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		items, total, err := svc.List(r.Context(), contentID, page)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		jsonio.Write(w, http.StatusOK, jsonio.NewPaginated(r, page, total, comment.PresentAll(items)))
	}
}

func edit(svc *comment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := auth.SessionFrom(r.Context())
		id, err := pathID(r, errNotFound)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		body, err := jsonio.DecodeObject(r)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		c, err := svc.Edit(r.Context(), session.User, id, body)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		jsonio.Write(w, http.StatusOK, comment.Present(c))
	}
}

func remove(svc *comment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := auth.SessionFrom(r.Context())
		id, err := pathID(r, errNotFound)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		err = svc.Delete(r.Context(), session.User, id)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		jsonio.Empty(w, http.StatusNoContent)
	}
}

func pathID(r *http.Request, notFound error) (int64, error) {
	params := httprouter.ParamsFromContext(r.Context())
	id, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, notFound
	}
	return id, nil
}
