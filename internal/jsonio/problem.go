package jsonio

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/andrebq/lostminer/internal/logutil"
)

type (
	// Problem is an error that should be reported to the client as is
	Problem struct {
		Status  int
		Message string
		Fields  map[string]string
	}

	problemBody struct {
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields,omitempty"`
	}
)

func (p Problem) Error() string {
	if len(p.Fields) == 0 {
		return fmt.Sprintf("%v: %v", p.Status, p.Message)
	}
	return fmt.Sprintf("%v: %v %v", p.Status, p.Message, p.Fields)
}

func BadRequest(msg string) Problem    { return Problem{Status: http.StatusBadRequest, Message: msg} }
func Unprocessable(msg string) Problem { return Problem{Status: http.StatusUnprocessableEntity, Message: msg} }
func Unauthorized(msg string) Problem  { return Problem{Status: http.StatusUnauthorized, Message: msg} }
func Forbidden(msg string) Problem     { return Problem{Status: http.StatusForbidden, Message: msg} }
func NotFound(msg string) Problem      { return Problem{Status: http.StatusNotFound, Message: msg} }
func Conflict(msg string) Problem      { return Problem{Status: http.StatusConflict, Message: msg} }

// WithFields returns a copy of p carrying per field messages
func (p Problem) WithFields(fields map[string]string) Problem {
	p.Fields = fields
	return p
}

// WriteError reports err to the client, errors that are not a Problem
// are logged and hidden behind a 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var p Problem
	if !errors.As(err, &p) {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Unexpected error while handling request")
		p = Problem{Status: http.StatusInternalServerError, Message: "Internal server error."}
	}
	Write(w, p.Status, problemBody{Message: p.Message, Fields: p.Fields})
}
