package api

import (
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/andrebq/lostminer/auth"
	"github.com/andrebq/lostminer/internal/jsonio"
	"github.com/julienschmidt/httprouter"
)

type (
	tokenResponse struct {
		Token string `json:"token"`
	}
)

const (
	maxUsernameLen = 50
)

var (
	errWrongTypes = jsonio.Unprocessable("Some of the fields have the wrong type. Only <string> accepted!")
)

// Mount registers the authentication endpoints under prefix
func Mount(router *httprouter.Router, prefix string, svc *auth.Service, realm *Realm) {
	router.HandlerFunc("POST", prefix+"/register", register(svc))
	router.HandlerFunc("POST", prefix+"/authorize", authorize(svc))
	router.HandlerFunc("POST", prefix+"/login", login(svc))
	router.Handler("PUT", prefix+"/set_password", realm.Protect(setPassword(svc)))
	router.Handler("PUT", prefix+"/refresh_token", realm.Protect(refreshToken(svc)))
}

func register(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := jsonio.DecodeObject(r)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		if !hasAll(body, "username", "email") {
			jsonio.WriteError(w, r, jsonio.BadRequest("Both <username> and <email> are required."))
			return
		}
		if !allStrings(body) {
			jsonio.WriteError(w, r, errWrongTypes)
			return
		}
		username := body["username"].(string)
		if n := utf8.RuneCountInString(username); n == 0 || n > maxUsernameLen {
			jsonio.WriteError(w, r, jsonio.Unprocessable(fmt.Sprintf("Field <username> must have between 1 and %v characters.", maxUsernameLen)))
			return
		}
		err = svc.Register(r.Context(), username, body["email"].(string))
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		jsonio.Empty(w, http.StatusCreated)
	}
}

func authorize(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := jsonio.DecodeObject(r)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		raw, found := body["code"]
		if !found || raw == nil {
			jsonio.WriteError(w, r, jsonio.BadRequest("Field <code> is required."))
			return
		}
		code, ok := raw.(string)
		if !ok {
			jsonio.WriteError(w, r, jsonio.Unprocessable(
				fmt.Sprintf("Incorrect type for <code>. Expected <string>, received %v.", jsonio.TypeName(raw))))
			return
		}
		token, err := svc.Authorize(r.Context(), code)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		if token == "" {
			jsonio.Empty(w, http.StatusCreated)
			return
		}
		jsonio.Write(w, http.StatusOK, tokenResponse{Token: token})
	}
}

func login(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := jsonio.DecodeObject(r)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		if _, found := body["email"]; !found {
			jsonio.WriteError(w, r, jsonio.BadRequest("Missing <email>."))
			return
		}
		if !allStrings(body) {
			jsonio.WriteError(w, r, errWrongTypes)
			return
		}
		password, _ := body["password"].(string)
		token, err := svc.Login(r.Context(), body["email"].(string), password)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		if token == "" {
			jsonio.Empty(w, http.StatusCreated)
			return
		}
		jsonio.Write(w, http.StatusOK, tokenResponse{Token: token})
	}
}

func setPassword(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := auth.SessionFrom(r.Context())
		body, err := jsonio.DecodeObject(r)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		raw, found := body["password"]
		if !found {
			jsonio.WriteError(w, r, jsonio.BadRequest("Field <password> is required."))
			return
		}
		password, ok := raw.(string)
		if !ok {
			jsonio.WriteError(w, r, jsonio.Unprocessable("Invalid type for <password>. Expected a non-empty string."))
			return
		}
		err = svc.SetPassword(r.Context(), session, password)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		jsonio.Empty(w, http.StatusCreated)
	}
}

func refreshToken(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := auth.SessionFrom(r.Context())
		token, err := svc.RefreshToken(r.Context(), session)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		jsonio.Write(w, http.StatusOK, tokenResponse{Token: token})
	}
}

func hasAll(body map[string]interface{}, fields ...string) bool {
	for _, f := range fields {
		if _, found := body[f]; !found {
			return false
		}
	}
	return true
}

func allStrings(body map[string]interface{}) bool {
	for _, v := range body {
		if _, ok := v.(string); !ok {
			return false
		}
	}
	return true
}
