package content

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/andrebq/lostminer/internal/jsonio"
	"github.com/andrebq/lostminer/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBody() map[string]interface{} {
	return map[string]interface{}{
		"name":         "Stone",
		"category":     "texture",
		"version":      "1.0",
		"resolution":   json.Number("16"),
		"download_url": "https://example.com/stone.zip",
	}
}

func problemOf(t *testing.T, err error) jsonio.Problem {
	var p jsonio.Problem
	require.ErrorAs(t, err, &p)
	return p
}

func TestDecode(t *testing.T) {
	c, err := decode(validBody(), store.Content{}, false)
	require.NoError(t, err)
	assert.Equal(t, "Stone", c.Name)
	assert.Equal(t, store.Texture, c.Category)
	require.NotNil(t, c.Resolution)
	assert.Equal(t, int64(16), *c.Resolution)
	assert.Nil(t, c.Description)
	assert.Empty(t, c.ImagesURLs)

	body := validBody()
	body["images_urls"] = `{"cover": "https://example.com/cover.png"}`
	body["description"] = "grey"
	body["resolution"] = "32"
	c, err = decode(body, store.Content{}, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"cover": "https://example.com/cover.png"}, c.ImagesURLs)
	assert.Equal(t, "grey", *c.Description)
	assert.Equal(t, int64(32), *c.Resolution)
}

func TestDecodeMissing(t *testing.T) {
	p := problemOf(t, func() error {
		_, err := decode(map[string]interface{}{"name": "Stone"}, store.Content{}, false)
		return err
	}())
	assert.Equal(t, http.StatusBadRequest, p.Status)
	assert.Equal(t, map[string]string{
		"category":     msgRequired,
		"version":      msgRequired,
		"download_url": msgRequired,
	}, p.Fields)
}

func TestDecodeInvalid(t *testing.T) {
	for _, tc := range []struct {
		field string
		value interface{}
		msg   string
	}{
		{"name", json.Number("1"), "Not a valid string."},
		{"name", "  ", "This field may not be blank."},
		{"name", strings.Repeat("a", maxNameLen+1), "Ensure this field has no more than 50 characters."},
		{"version", strings.Repeat("v", maxVersionLen+1), "Ensure this field has no more than 100 characters."},
		{"category", "music", `"music" is not a valid choice.`},
		{"resolution", "high", "A valid integer is required."},
		{"download_url", "example.com/stone.zip", "Enter a valid URL."},
		{"download_url", "mailto:ann@example.com", "Enter a valid URL."},
		{"images_urls", []interface{}{"a"}, "Expected a mapping of image names to urls."},
		{"images_urls", map[string]interface{}{"a": json.Number("1")}, "Expected a mapping of image names to urls."},
	} {
		body := validBody()
		body[tc.field] = tc.value
		_, err := decode(body, store.Content{}, false)
		p := problemOf(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, p.Status, "field %v value %v", tc.field, tc.value)
		assert.Equal(t, tc.msg, p.Fields[tc.field], "field %v value %v", tc.field, tc.value)
	}
}

func TestDecodeResolution(t *testing.T) {
	for _, category := range []string{"texture", "skin"} {
		for _, resolution := range []interface{}{nil, json.Number("0"), ""} {
			body := validBody()
			body["category"] = category
			body["resolution"] = resolution
			_, err := decode(body, store.Content{}, false)
			p := problemOf(t, err)
			assert.Equal(t, "Resolution is required for this category.", p.Message)
		}
	}
	body := validBody()
	body["category"] = "world"
	delete(body, "resolution")
	c, err := decode(body, store.Content{}, false)
	require.NoError(t, err)
	assert.Nil(t, c.Resolution)
}

func TestDecodePartial(t *testing.T) {
	base, err := decode(validBody(), store.Content{}, false)
	require.NoError(t, err)

	next, err := decode(map[string]interface{}{"version": "2.0"}, base, true)
	require.NoError(t, err)
	assert.Equal(t, "2.0", next.Version)
	assert.Equal(t, base.Name, next.Name)
	assert.Equal(t, base.Resolution, next.Resolution)

	_, err = decode(map[string]interface{}{"resolution": nil}, base, true)
	assert.Equal(t, "Resolution is required for this category.", problemOf(t, err).Message)

	_, err = decode(map[string]interface{}{"version": "2.0"}, base, false)
	assert.Equal(t, http.StatusBadRequest, problemOf(t, err).Status)
}

func TestDecodeFullKeepsOptional(t *testing.T) {
	body := validBody()
	body["description"] = "grey"
	body["images_urls"] = map[string]interface{}{"cover": "https://example.com/cover.png"}
	base, err := decode(body, store.Content{}, false)
	require.NoError(t, err)

	next, err := decode(validBody(), base, false)
	require.NoError(t, err)
	assert.Equal(t, base.ImagesURLs, next.ImagesURLs)
	require.NotNil(t, next.Description)
	assert.Equal(t, "grey", *next.Description)

	body = validBody()
	body["description"] = nil
	body["images_urls"] = map[string]interface{}{}
	next, err = decode(body, base, false)
	require.NoError(t, err)
	assert.Nil(t, next.Description, "explicit null clears the description")
	assert.Empty(t, next.ImagesURLs)
}

func TestParseOrdering(t *testing.T) {
	assert.Equal(t, store.Ordering{Field: "created_at"}, ParseOrdering(""))
	assert.Equal(t, store.Ordering{Field: "name", Desc: true}, ParseOrdering("-name"))
	assert.Equal(t, store.Ordering{Field: "created_at", Desc: true}, ParseOrdering("bogus, -created_at,name"))
	assert.Equal(t, store.Ordering{Field: "created_at"}, ParseOrdering("password"))
}
