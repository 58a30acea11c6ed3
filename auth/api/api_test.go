package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/andrebq/lostminer/auth"
	"github.com/andrebq/lostminer/internal/testutil"
	"github.com/andrebq/lostminer/store"
	"github.com/julienschmidt/httprouter"
	"github.com/steinfletcher/apitest"
	jsonpath "github.com/steinfletcher/apitest-jsonpath"
	"github.com/stretchr/testify/require"
)

func acquireHandler(t *testing.T) (http.Handler, *auth.Service, *testutil.Mailbox) {
	ctx := context.Background()
	st, cleanup := testutil.AcquireStore(ctx, t, store.Options{})
	t.Cleanup(cleanup)
	codes, err := auth.InMemoryCodeStore(auth.CodeStoreOptions{})
	require.NoError(t, err)
	mailbox := &testutil.Mailbox{}
	svc := auth.NewService(auth.Config{
		Users:    st.Users(),
		Registry: auth.NewRegistry(st.Connections(), 0, nil),
		Codes:    codes,
		Tokens:   auth.NewTokenCodec([]byte("0123456789abcdef0123456789abcdef")),
		Mailer:   mailbox,
	})
	router := httprouter.New()
	Mount(router, "/auth", svc, NewRealm(svc))
	return router, svc, mailbox
}

func TestProtect(t *testing.T) {
	handler, svc, mailbox := acquireHandler(t)
	var count uint32
	protected := NewRealm(svc).Protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddUint32(&count, 1)
		session, ok := auth.SessionFrom(r.Context())
		if !ok || session.User.Username != "ann" {
			http.Error(w, "missing session", http.StatusInternalServerError)
			return
		}
		http.Error(w, "OK", http.StatusOK)
	}))
	apitest.Handler(protected).Get("/").Expect(t).Status(http.StatusUnauthorized).End()
	apitest.Handler(protected).Get("/").Header("Authorization", "Bearer abc123").Expect(t).Status(http.StatusUnauthorized).End()
	apitest.Handler(protected).Get("/").Header("Authorization", "Token abc123").Expect(t).Status(http.StatusUnauthorized).End()

	token := registerUser(t, handler, mailbox, "ann", "ann@example.com")
	apitest.Handler(protected).Get("/").Header("Authorization", fmt.Sprintf("Bearer %v", token)).Expect(t).Status(http.StatusOK).End()
	if count != 1 {
		t.Fatal("Protected endpoint should have been called only once")
	}
}

func registerUser(t *testing.T, handler http.Handler, mailbox *testutil.Mailbox, username, email string) string {
	apitest.Handler(handler).
		Post("/auth/register").
		JSON(fmt.Sprintf(`{"username": %q, "email": %q}`, username, email)).
		Expect(t).
		Status(http.StatusCreated).
		End()
	code, found := mailbox.LastCode(email)
	require.True(t, found)
	var token string
	apitest.Handler(handler).
		Post("/auth/authorize").
		JSON(fmt.Sprintf(`{"code": %q}`, code)).
		Expect(t).
		Status(http.StatusOK).
		Assert(jsonpath.Present("$.token")).
		Assert(captureToken(&token)).
		End()
	require.NotEmpty(t, token)
	return token
}

func captureToken(out *string) apitest.Assert {
	return func(res *http.Response, _ *http.Request) error {
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
			return err
		}
		*out = body.Token
		return nil
	}
}

func TestRegisterValidation(t *testing.T) {
	handler, _, mailbox := acquireHandler(t)
	for _, tc := range []struct {
		body    string
		status  int
		message string
	}{
		{`{"username": "ann"}`, http.StatusBadRequest, "Both <username> and <email> are required."},
		{`{"username": "ann", "email": 10}`, http.StatusUnprocessableEntity, "Some of the fields have the wrong type. Only <string> accepted!"},
		{`{"username": "ann", "email": "ann"}`, http.StatusUnprocessableEntity, "Incorrect email format."},
		{`[1, 2]`, http.StatusBadRequest, "JSON parse error, expecting an object."},
	} {
		apitest.Handler(handler).
			Post("/auth/register").
			JSON(tc.body).
			Expect(t).
			Status(tc.status).
			Assert(jsonpath.Equal("$.message", tc.message)).
			End()
	}

	registerUser(t, handler, mailbox, "ann", "ann@example.com")
	apitest.Handler(handler).
		Post("/auth/register").
		JSON(`{"username": "other", "email": "ann@example.com"}`).
		Expect(t).
		Status(http.StatusConflict).
		Assert(jsonpath.Equal("$.message", "Email already exists.")).
		End()
}

func TestAuthorizeValidation(t *testing.T) {
	handler, _, _ := acquireHandler(t)
	apitest.Handler(handler).Post("/auth/authorize").JSON(`{}`).
		Expect(t).Status(http.StatusBadRequest).
		Assert(jsonpath.Equal("$.message", "Field <code> is required.")).End()
	apitest.Handler(handler).Post("/auth/authorize").JSON(`{"code": 123456}`).
		Expect(t).Status(http.StatusUnprocessableEntity).
		Assert(jsonpath.Equal("$.message", "Incorrect type for <code>. Expected <string>, received number.")).End()
	apitest.Handler(handler).Post("/auth/authorize").JSON(`{"code": "nope"}`).
		Expect(t).Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.message", "Unauthorized!")).End()
}

func TestLoginAndPassword(t *testing.T) {
	handler, _, mailbox := acquireHandler(t)
	token := registerUser(t, handler, mailbox, "ann", "ann@example.com")

	apitest.Handler(handler).Post("/auth/login").JSON(`{"password": "x"}`).
		Expect(t).Status(http.StatusBadRequest).
		Assert(jsonpath.Equal("$.message", "Missing <email>.")).End()
	apitest.Handler(handler).Post("/auth/login").JSON(`{"email": "bob@example.com"}`).
		Expect(t).Status(http.StatusNotFound).
		Assert(jsonpath.Equal("$.message", "User not found.")).End()
	apitest.Handler(handler).Post("/auth/login").JSON(`{"email": "ann@example.com"}`).
		Expect(t).Status(http.StatusCreated).Body(``).End()
	apitest.Handler(handler).Post("/auth/login").JSON(`{"email": "ann@example.com", "password": ""}`).
		Expect(t).Status(http.StatusCreated).End()

	apitest.Handler(handler).Put("/auth/set_password").JSON(`{"password": "secret"}`).
		Expect(t).Status(http.StatusUnauthorized).End()
	auth := fmt.Sprintf("Bearer %v", token)
	apitest.Handler(handler).Put("/auth/set_password").Header("Authorization", auth).JSON(`{}`).
		Expect(t).Status(http.StatusBadRequest).
		Assert(jsonpath.Equal("$.message", "Field <password> is required.")).End()
	apitest.Handler(handler).Put("/auth/set_password").Header("Authorization", auth).JSON(`{"password": 1}`).
		Expect(t).Status(http.StatusUnprocessableEntity).End()
	apitest.Handler(handler).Put("/auth/set_password").Header("Authorization", auth).JSON(`{"password": ""}`).
		Expect(t).Status(http.StatusUnprocessableEntity).End()
	apitest.Handler(handler).Put("/auth/set_password").Header("Authorization", auth).
		JSON(fmt.Sprintf(`{"password": %q}`, strings.Repeat("x", 81))).
		Expect(t).Status(http.StatusUnprocessableEntity).
		Assert(jsonpath.Equal("$.message", "Ensure <password> has no more than 72 bytes.")).End()
	apitest.Handler(handler).Put("/auth/set_password").Header("Authorization", auth).JSON(`{"password": "secret"}`).
		Expect(t).Status(http.StatusCreated).End()

	code, _ := mailbox.LastCode("ann@example.com")
	apitest.Handler(handler).Post("/auth/authorize").JSON(fmt.Sprintf(`{"code": %q}`, code)).
		Expect(t).Status(http.StatusCreated).End()

	apitest.Handler(handler).Post("/auth/login").JSON(`{"email": "ann@example.com", "password": "wrong"}`).
		Expect(t).Status(http.StatusUnauthorized).
		Assert(jsonpath.Equal("$.message", "Incorrect password.")).End()
	apitest.Handler(handler).Post("/auth/login").JSON(`{"email": "ann@example.com", "password": "secret"}`).
		Expect(t).Status(http.StatusOK).
		Assert(jsonpath.Present("$.token")).End()
}

func TestRefreshToken(t *testing.T) {
	handler, _, mailbox := acquireHandler(t)
	token := registerUser(t, handler, mailbox, "ann", "ann@example.com")
	var fresh string
	apitest.Handler(handler).Put("/auth/refresh_token").Header("Authorization", "Bearer "+token).
		Expect(t).Status(http.StatusOK).
		Assert(captureToken(&fresh)).
		End()
	require.NotEmpty(t, fresh)
	apitest.Handler(handler).Put("/auth/refresh_token").Header("Authorization", "Bearer "+token).
		Expect(t).Status(http.StatusUnauthorized).End()
	apitest.Handler(handler).Put("/auth/refresh_token").Header("Authorization", "Bearer "+fresh).
		Expect(t).Status(http.StatusOK).End()
}
