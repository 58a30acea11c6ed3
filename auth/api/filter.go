package api

import (
	"context"
	"net/http"
	"regexp"

	"github.com/andrebq/lostminer/auth"
	"github.com/andrebq/lostminer/internal/jsonio"
	"github.com/andrebq/lostminer/internal/logutil"
)

type (
	Authenticator interface {
		Authenticate(ctx context.Context, token string) (auth.Session, error)
	}

	// Realm guards handlers that require a bearer token
	Realm struct {
		authn Authenticator
	}
)

var (
	bearerTokenRE = regexp.MustCompile(`^Bearer ([^\s]+)$`)

	errMissingToken = jsonio.Unauthorized("Authentication credentials were not provided.")
)

func NewRealm(authn Authenticator) *Realm {
	return &Realm{authn: authn}
}

// Protect only calls sensitive when the request carries a valid token,
// the resolved session is available through auth.SessionFrom.
func (s *Realm) Protect(sensitive http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.checkToken(r)
		if err != nil {
			jsonio.WriteError(w, r, err)
			return
		}
		ctx := auth.WithSession(r.Context(), session)
		log := logutil.GetOrDefault(ctx).With().Int64("user", session.User.ID).Logger()
		sensitive.ServeHTTP(w, r.WithContext(logutil.WithLogger(ctx, log)))
	})
}

func (s *Realm) checkToken(r *http.Request) (auth.Session, error) {
	hdrVal := r.Header.Get("Authorization")
	groups := bearerTokenRE.FindStringSubmatch(hdrVal)
	if len(groups) == 0 {
		return auth.Session{}, errMissingToken
	}
	return s.authn.Authenticate(r.Context(), groups[1])
}
