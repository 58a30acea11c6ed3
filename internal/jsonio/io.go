package jsonio

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
)

const (
	maxBodySize = 1 << 20
)

// Write encodes v as the JSON body of the response
func Write(w http.ResponseWriter, status int, v interface{}) {
	buf, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "unable to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	w.WriteHeader(status)
	w.Write(buf)
}

// Empty writes a response without body
func Empty(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}

// DecodeObject reads the request body as a JSON object, form encoded
// bodies are accepted as well and every value is a string.
//
// Numbers are kept as json.Number so callers can tell integers apart.
// An empty body is an empty object.
func DecodeObject(r *http.Request) (map[string]interface{}, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return decodeForm(r, mt == "multipart/form-data")
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, BadRequest("Unable to read request body.")
	} else if len(body) > maxBodySize {
		return nil, Problem{Status: http.StatusRequestEntityTooLarge, Message: "Request body too large."}
	}
	out := map[string]interface{}{}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, BadRequest("JSON parse error, expecting an object.")
	}
	return out, nil
}

func decodeForm(r *http.Request, multipart bool) (map[string]interface{}, error) {
	var err error
	if multipart {
		err = r.ParseMultipartForm(maxBodySize)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return nil, BadRequest("Unable to parse form body.")
	}
	out := map[string]interface{}{}
	for k, v := range r.PostForm {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out, nil
}

// TypeName returns the JSON name of the type of v, used in validation messages
func TypeName(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	}
	return "unknown"
}
