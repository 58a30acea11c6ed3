package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type (
	Image struct {
		// Name is the original file name, only its extension is kept
		Name        string
		ContentType string
		Size        int64
		Body        io.ReadSeeker
	}

	// Uploader stores images and returns the public url of each one
	Uploader interface {
		Upload(ctx context.Context, folder string, img Image) (string, error)
	}

	S3Options struct {
		Bucket    string
		Region    string
		Endpoint  string
		AccessKey string
		SecretKey string
		// PublicURL is the prefix used to build the returned urls,
		// when empty the endpoint plus bucket is used.
		PublicURL string
	}

	putObjectAPI interface {
		PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	}

	S3 struct {
		client    putObjectAPI
		bucket    string
		publicURL string
	}

	disabled struct{}
)

var (
	ErrDisabled = errors.New("image uploads are not configured")
)

// Disabled returns an uploader that rejects every image
func Disabled() Uploader { return disabled{} }

func (disabled) Upload(context.Context, string, Image) (string, error) {
	return "", ErrDisabled
}

func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	loaders := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("unable to load aws config, cause %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	public := opts.PublicURL
	if public == "" {
		public = defaultPublicURL(opts)
	}
	return newS3(client, opts.Bucket, public), nil
}

func newS3(client putObjectAPI, bucket, publicURL string) *S3 {
	return &S3{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// Upload stores img under folder with a random name, the extension of
// the original name is preserved.
func (s *S3) Upload(ctx context.Context, folder string, img Image) (string, error) {
	key := ObjectKey(folder, img.Name)
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   img.Body,
	}
	if img.ContentType != "" {
		in.ContentType = aws.String(img.ContentType)
	}
	if img.Size > 0 {
		in.ContentLength = aws.Int64(img.Size)
	}
	_, err := s.client.PutObject(ctx, in)
	if err != nil {
		return "", fmt.Errorf("unable to upload image %v to %v, cause %w", img.Name, key, err)
	}
	return s.publicURL + "/" + key, nil
}

// ObjectKey returns a unique key inside folder for a file named name
func ObjectKey(folder, name string) string {
	ext := strings.ToLower(path.Ext(name))
	return path.Join(strings.Trim(folder, "/"), uuid.NewString()+ext)
}

func defaultPublicURL(opts S3Options) string {
	if opts.Endpoint != "" {
		u, err := url.Parse(opts.Endpoint)
		if err == nil {
			u.Path = path.Join(u.Path, opts.Bucket)
			return u.String()
		}
	}
	return fmt.Sprintf("https://%v.s3.%v.amazonaws.com", opts.Bucket, opts.Region)
}
