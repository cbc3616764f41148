package fetch

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/evilmagics/kitti/internal/utils"
)

// DefaultEndpoint hosts the public avg-kitti bucket.
const DefaultEndpoint = "s3.eu-central-1.amazonaws.com"

// ObjectFetcher reads archives through the S3 API. Archive URLs are taken
// as path style, /<bucket>/<key>, and resolved against the configured
// endpoint, so a private mirror of the bucket can stand in for the public
// one.
type ObjectFetcher struct {
	client   *minio.Client
	progress bool
}

// NewObjectFetcher connects anonymously to endpoint.
func NewObjectFetcher(endpoint, region string, secure, progress bool) (*ObjectFetcher, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("", "", ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, errors.Wrapf(utils.ErrConfiguration, "s3 endpoint %s: %v", endpoint, err)
	}
	return &ObjectFetcher{client: client, progress: progress}, nil
}

// SplitObjectURL returns the bucket and object key of a path style URL.
func SplitObjectURL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", errors.Wrapf(utils.ErrConfiguration, "archive url %s: %v", raw, err)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if !ok || bucket == "" || key == "" {
		return "", "", errors.Wrapf(utils.ErrConfiguration, "archive url %s has no bucket and key", raw)
	}
	return bucket, key, nil
}

func (f *ObjectFetcher) Fetch(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	bucket, key, err := SplitObjectURL(rawURL)
	if err != nil {
		return 0, err
	}

	obj, err := f.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return 0, errors.Wrapf(utils.ErrDownload, "%s/%s: %v", bucket, key, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return 0, errors.Wrapf(utils.ErrDownload, "%s/%s: %s", bucket, key, minio.ToErrorResponse(err).Code)
	}

	bar := newBar(info.Size, key, f.progress)
	defer bar.Close()

	n, err := io.Copy(io.MultiWriter(w, bar), obj)
	if err != nil {
		return n, errors.Wrapf(utils.ErrDownload, "%s/%s: %v", bucket, key, err)
	}
	return n, nil
}
