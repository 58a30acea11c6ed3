package content

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/andrebq/lostminer/internal/imagestore"
	"github.com/andrebq/lostminer/internal/testutil"
	"github.com/andrebq/lostminer/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	failingUploader struct{}
)

func (failingUploader) Upload(ctx context.Context, folder string, img imagestore.Image) (string, error) {
	return "", errors.New("bucket is on fire")
}

func acquireService(t *testing.T, uploader imagestore.Uploader) (*Service, store.User, store.User) {
	ctx := context.Background()
	st, cleanup := testutil.AcquireStore(ctx, t, store.Options{})
	t.Cleanup(cleanup)
	ann, err := st.Users().Create(ctx, "ann", "ann@example.com")
	require.NoError(t, err)
	bob, err := st.Users().Create(ctx, "bob", "bob@example.com")
	require.NoError(t, err)
	return NewService(st.Contents(), uploader), ann, bob
}

func image(name string) imagestore.Image {
	return imagestore.Image{Name: name, ContentType: "image/png", Size: 3, Body: bytes.NewReader([]byte("png"))}
}

func TestServiceOwnership(t *testing.T) {
	ctx := context.Background()
	svc, ann, bob := acquireService(t, nil)
	c, err := svc.Create(ctx, ann, validBody())
	require.NoError(t, err)
	assert.Equal(t, ann.ID, c.Author.ID)

	_, err = svc.Update(ctx, bob, c.ID, map[string]interface{}{"name": "Mine"}, true)
	assert.Equal(t, http.StatusForbidden, problemOf(t, err).Status)
	err = svc.Delete(ctx, bob, c.ID)
	assert.Equal(t, http.StatusForbidden, problemOf(t, err).Status)
	_, err = svc.Owned(ctx, ann, c.ID+100)
	assert.Equal(t, "Content not found.", problemOf(t, err).Message)

	_, err = svc.Create(ctx, bob, validBody())
	p := problemOf(t, err)
	assert.Equal(t, http.StatusConflict, p.Status)
	assert.Equal(t, "Content with this download url already exists.", p.Fields["download_url"])

	require.NoError(t, svc.Delete(ctx, ann, c.ID))
	_, err = svc.Get(ctx, c.ID)
	assert.Equal(t, http.StatusNotFound, problemOf(t, err).Status)
}

func TestServiceUploadImages(t *testing.T) {
	ctx := context.Background()
	bucket := &testutil.Bucket{}
	svc, ann, bob := acquireService(t, bucket)
	c, err := svc.Create(ctx, ann, validBody())
	require.NoError(t, err)

	_, err = svc.UploadImages(ctx, ann, c.ID, nil)
	assert.Equal(t, "No images were sent.", problemOf(t, err).Message)
	_, err = svc.UploadImages(ctx, bob, c.ID, map[string]imagestore.Image{"cover": image("cover.png")})
	assert.Equal(t, http.StatusForbidden, problemOf(t, err).Status)

	c, err = svc.UploadImages(ctx, ann, c.ID, map[string]imagestore.Image{
		"side":  image("side.png"),
		"cover": image("cover.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"cover": "https://images.test/contents/1-cover.png",
		"side":  "https://images.test/contents/2-side.png",
	}, c.ImagesURLs)

	c, err = svc.UploadImages(ctx, ann, c.ID, map[string]imagestore.Image{"cover": image("new.png")})
	require.NoError(t, err)
	assert.Equal(t, "https://images.test/contents/3-new.png", c.ImagesURLs["cover"])
	assert.Len(t, c.ImagesURLs, 2)
}

func TestServiceUploadFailures(t *testing.T) {
	ctx := context.Background()
	svc, ann, _ := acquireService(t, nil)
	c, err := svc.Create(ctx, ann, validBody())
	require.NoError(t, err)
	_, err = svc.UploadImages(ctx, ann, c.ID, map[string]imagestore.Image{"cover": image("cover.png")})
	assert.Equal(t, http.StatusServiceUnavailable, problemOf(t, err).Status)

	svc, ann, _ = acquireService(t, failingUploader{})
	c, err = svc.Create(ctx, ann, validBody())
	require.NoError(t, err)
	_, err = svc.UploadImages(ctx, ann, c.ID, map[string]imagestore.Image{"cover": image("cover.png")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket is on fire")
}
