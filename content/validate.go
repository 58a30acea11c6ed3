package content

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/andrebq/lostminer/internal/jsonio"
	"github.com/andrebq/lostminer/store"
)

type (
	fieldErrors map[string]string
)

const (
	maxNameLen        = 50
	maxVersionLen     = 100
	maxDownloadURLLen = 200

	msgRequired = "This field is required."
)

var (
	errResolutionRequired = jsonio.Unprocessable("Resolution is required for this category.")
)

// decode applies the fields in body on top of base. When partial is false
// every required field must be present. Optional fields missing from body
// keep the value they have in base.
func decode(body map[string]interface{}, base store.Content, partial bool) (store.Content, error) {
	out := base
	missing := fieldErrors{}
	invalid := fieldErrors{}

	present := func(name string) (interface{}, bool) {
		v, found := body[name]
		return v, found
	}
	required := func(name string) (interface{}, bool) {
		v, found := present(name)
		if !found && !partial {
			missing[name] = msgRequired
		}
		return v, found
	}

	if v, found := required("name"); found {
		out.Name, _ = boundedString(invalid, "name", v, maxNameLen)
	}
	if v, found := present("description"); found {
		out.Description = nil
		if v != nil {
			s, ok := v.(string)
			if !ok {
				invalid["description"] = "Not a valid string."
			} else {
				out.Description = &s
			}
		}
	}
	if v, found := required("category"); found {
		s, ok := v.(string)
		switch {
		case !ok:
			invalid["category"] = "Not a valid string."
		case !store.Category(s).Valid():
			invalid["category"] = fmt.Sprintf("%q is not a valid choice.", s)
		default:
			out.Category = store.Category(s)
		}
	}
	if v, found := required("version"); found {
		out.Version, _ = boundedString(invalid, "version", v, maxVersionLen)
	}
	if v, found := present("resolution"); found {
		out.Resolution = nil
		if v != nil && v != "" {
			n, err := toInt(v)
			if err != nil {
				invalid["resolution"] = "A valid integer is required."
			} else {
				out.Resolution = &n
			}
		}
	}
	if v, found := required("download_url"); found {
		s, ok := boundedString(invalid, "download_url", v, maxDownloadURLLen)
		if ok && !validURL(s) {
			invalid["download_url"] = "Enter a valid URL."
		} else if ok {
			out.DownloadURL = s
		}
	}
	if v, found := present("images_urls"); found {
		images, err := toImages(v)
		if err != nil {
			invalid["images_urls"] = "Expected a mapping of image names to urls."
		} else {
			out.ImagesURLs = images
		}
	}

	if out.ImagesURLs == nil {
		out.ImagesURLs = map[string]string{}
	}

	if len(missing) > 0 {
		return store.Content{}, jsonio.BadRequest("Some required fields are missing.").WithFields(missing)
	}
	if len(invalid) > 0 {
		return store.Content{}, jsonio.Unprocessable("Some of the fields are invalid.").WithFields(invalid)
	}
	if out.Category.NeedsResolution() && (out.Resolution == nil || *out.Resolution == 0) {
		return store.Content{}, errResolutionRequired
	}
	return out, nil
}

func boundedString(invalid fieldErrors, name string, v interface{}, max int) (string, bool) {
	s, ok := v.(string)
	switch {
	case !ok:
		invalid[name] = "Not a valid string."
		return "", false
	case strings.TrimSpace(s) == "":
		invalid[name] = "This field may not be blank."
		return "", false
	case utf8.RuneCountInString(s) > max:
		invalid[name] = fmt.Sprintf("Ensure this field has no more than %v characters.", max)
		return "", false
	}
	return s, true
}

func toInt(v interface{}) (int64, error) {
	switch v := v.(type) {
	case json.Number:
		return v.Int64()
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	}
	return 0, fmt.Errorf("%v is not an integer", jsonio.TypeName(v))
}

func toImages(v interface{}) (map[string]string, error) {
	if s, ok := v.(string); ok {
		var decoded interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, err
		}
		v = decoded
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%v is not an object", jsonio.TypeName(v))
	}
	out := make(map[string]string, len(obj))
	for k, item := range obj {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("image %v is not a string", k)
		}
		out[k] = s
	}
	return out, nil
}

func validURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "ftp", "ftps":
	default:
		return false
	}
	return u.Host != ""
}
