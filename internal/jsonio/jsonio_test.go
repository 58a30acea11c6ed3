package jsonio

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObject(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"a": 1, "b": "two", "c": null}`))
	req.Header.Set("Content-Type", "application/json")
	body, err := DecodeObject(req)
	require.NoError(t, err)
	assert.Equal(t, json.Number("1"), body["a"])
	assert.Equal(t, "two", body["b"])
	assert.Contains(t, body, "c")

	body, err = DecodeObject(httptest.NewRequest("POST", "/", strings.NewReader("  ")))
	require.NoError(t, err)
	assert.Empty(t, body)

	_, err = DecodeObject(httptest.NewRequest("POST", "/", strings.NewReader(`"text"`)))
	var p Problem
	require.True(t, errors.As(err, &p))
	assert.Equal(t, http.StatusBadRequest, p.Status)

	req = httptest.NewRequest("POST", "/", strings.NewReader("code=123456&other=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	body, err = DecodeObject(req)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"code": "123456", "other": "x"}, body)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest("GET", "/", nil),
		Unprocessable("Some of the fields are invalid.").WithFields(map[string]string{"name": "Not a valid string."}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"message": "Some of the fields are invalid.", "fields": {"name": "Not a valid string."}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest("GET", "/", nil), errors.New("database is gone"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "database")
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "null", TypeName(nil))
	assert.Equal(t, "number", TypeName(json.Number("1")))
	assert.Equal(t, "boolean", TypeName(true))
	assert.Equal(t, "array", TypeName([]interface{}{}))
	assert.Equal(t, "object", TypeName(map[string]interface{}{}))
}

func TestPaging(t *testing.T) {
	page, err := ParsePage(httptest.NewRequest("GET", "/list/", nil), 10)
	require.NoError(t, err)
	assert.Equal(t, PageRequest{Number: 1, Size: 10}, page)
	assert.NoError(t, page.Check(0))

	page, err = ParsePage(httptest.NewRequest("GET", "/list/?page=2&page_size=500", nil), 10)
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.Size)
	assert.Equal(t, 100, page.Offset())
	assert.Error(t, page.Check(100))
	assert.NoError(t, page.Check(101))

	for _, q := range []string{"page=0", "page=abc", "page=-1"} {
		_, err = ParsePage(httptest.NewRequest("GET", "/list/?"+q, nil), 10)
		assert.Equal(t, invalidPage, err, q)
	}
}

func TestNewPaginated(t *testing.T) {
	req := httptest.NewRequest("GET", "http://api.test/contents/list/?page=2&ordering=name", nil)
	page, err := ParsePage(req, 10)
	require.NoError(t, err)
	out := NewPaginated(req, page, 35, []int{})
	require.NotNil(t, out.Next)
	require.NotNil(t, out.Previous)
	assert.Equal(t, "http://api.test/contents/list/?ordering=name&page=3", *out.Next)
	assert.Equal(t, "http://api.test/contents/list/?ordering=name", *out.Previous)

	out = NewPaginated(req, PageRequest{Number: 4, Size: 10}, 35, []int{})
	assert.Nil(t, out.Next)
}
