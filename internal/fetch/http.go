package fetch

import (
	"context"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/evilmagics/kitti/internal/utils"
)

// HTTPFetcher downloads archives with plain GET requests.
type HTTPFetcher struct {
	client   *resty.Client
	progress bool
}

// NewHTTPFetcher returns a fetcher whose requests are bounded by timeout;
// zero disables the limit, which suits the multi gigabyte KITTI archives.
func NewHTTPFetcher(timeout time.Duration, progress bool) *HTTPFetcher {
	c := resty.New().
		SetTimeout(timeout).
		SetDoNotParseResponse(true)

	return &HTTPFetcher{client: c, progress: progress}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return 0, errors.Wrapf(utils.ErrDownload, "%s: %v", url, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return 0, errors.Wrapf(utils.ErrDownload, "%s: %s", url, resp.Status())
	}

	bar := newBar(resp.RawResponse.ContentLength, url, f.progress)
	defer bar.Close()

	n, err := io.Copy(io.MultiWriter(w, bar), body)
	if err != nil {
		return n, errors.Wrapf(utils.ErrDownload, "%s: %v", url, err)
	}
	return n, nil
}
