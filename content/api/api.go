package api

import (
	"net/http"
	"strconv"

	"github.com/andrebq/lostminer/auth"
	authapi "github.com/andrebq/lostminer/auth/api"
	"github.com/andrebq/lostminer/content"
	"github.com/andrebq/lostminer/internal/imagestore"
	"github.com/andrebq/lostminer/internal/jsonio"
	"github.com/julienschmidt/httprouter"
)

const (
	maxUploadMemory = 32 << 20
)

var (
	errNotFound     = jsonio.NotFound("Content not found.")
	errNotMultipart = jsonio.BadRequest("Expected a multipart form with the images.")
)

// Mount registers the content endpoints under prefix
func Mount(router *httprouter.Router, prefix string, svc *content.Service, realm *authapi.Realm) {
	router.Handler("POST", prefix+"/create", realm.Protect(create(svc)))
	router.HandlerFunc("GET", prefix+"/details/:id", details(svc))
	router.HandlerFunc("GET", prefix+"/list/", list(svc))
	router.Handler("PUT", prefix+"/edit/:id", realm.Protect(edit(svc, false)))
	router.Handler("PATCH", prefix+"/edit/:id", realm.Protect(edit(svc, true)))
	router.Handler("DELETE", prefix+"/delete/:id", realm.Protect(remove(svc)))
	router.Handler("POST", prefix+"/upload_images/:id", realm.Protect(uploadImages(svc)))
}

func create(svc *content.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := auth.SessionFrom(r.Context())
		body, err := jsonio.DecodeObject(r)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		c, err := svc.Create(r.Context(), session.User, body)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		jsonio.Write(w, http.StatusCreated, content.Present(c))
	}
}

func details(svc *content.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		c, err := svc.Get(r.Context(), id)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		jsonio.Write(w, http.StatusOK, content.Present(c))
	}
}

func list(svc *content.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := jsonio.ParsePage(r, content.DefaultPageSize)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		order := content.ParseOrdering(r.URL.Query().Get("ordering"))
		items, total, err := svc.List(r.Context(), order, page)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		jsonio.Write(w, http.StatusOK, jsonio.NewPaginated(r, page, total, content.PresentAll(items)))
	}
}

func edit(svc *content.Service, partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := auth.SessionFrom(r.Context())
		id, err := pathID(r)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		body, err := jsonio.DecodeObject(r)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		c, err := svc.Update(r.Context(), session.User, id, body, partial)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		jsonio.Write(w, http.StatusOK, content.Present(c))
	}
}

func remove(svc *content.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := auth.SessionFrom(r.Context())
		id, err := pathID(r)
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

func uploadImages(svc *content.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := auth.SessionFrom(r.Context())
		id, err := pathID(r)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		if _, err := svc.Owned(r.Context(), session.User, id); err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			jsonio.WriteError(w, r, errNotMultipart)
			return
		}
		defer r.MultipartForm.RemoveAll()
		images := map[string]imagestore.Image{}
		for name, headers := range r.MultipartForm.File {
			if len(headers) == 0 {
				continue
			}
			hdr := headers[0]
			f, err := hdr.Open()
			if err != nil {
				jsonio.WriteError(w, r, err)
				return
			}
			defer f.Close()
			images[name] = imagestore.Image{
				Name:        hdr.Filename,
				ContentType: hdr.Header.Get("Content-Type"),
				Size:        hdr.Size,
				Body:        f,
			}
		}
		c, err := svc.UploadImages(r.Context(), session.User, id, images)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		jsonio.Write(w, http.StatusOK, content.Present(c))
	}
}

func pathID(r *http.Request) (int64, error) {
	params := httprouter.ParamsFromContext(r.Context())
	id, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errNotFound
	}
	return id, nil
}
