package httpserver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr := make(chan net.Addr, 1)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "too large", http.StatusRequestEntityTooLarge)
			return
		}
		fmt.Fprint(w, "pong")
	})
	errc := make(chan error, 1)
	go func() {
		errc <- Serve(ctx, Options{
			Bind:         "127.0.0.1:0",
			MaxBodyBytes: 8,
			Ready:        func(a net.Addr) { addr <- a },
		}, handler)
	}()
	var base string
	select {
	case a := <-addr:
		base = "http://" + a.String()
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	res, err := http.Get(base + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, "pong", string(body))

	res, err = http.Post(base+"/ping", "text/plain", strings.NewReader("this body is too large"))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, res.StatusCode)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeBindError(t *testing.T) {
	lst, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lst.Close()
	err = Serve(context.Background(), Options{Bind: lst.Addr().String()}, http.NotFoundHandler())
	assert.Error(t, err)
}
