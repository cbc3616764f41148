// Package fetch retrieves dataset archives over HTTP or from an S3
// compatible bucket and unpacks them.
package fetch

import (
	"context"
	"io"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"

	"github.com/evilmagics/kitti/internal/utils"
)

// Fetcher streams the resource at url into w and returns the number of
// bytes written.
type Fetcher interface {
	Fetch(ctx context.Context, url string, w io.Writer) (int64, error)
}

func newBar(size int64, url string, progress bool) *progressbar.ProgressBar {
	desc := path.Base(url)
	if progress {
		return progressbar.DefaultBytes(size, desc)
	}
	return progressbar.DefaultBytesSilent(size, desc)
}

// ToFile fetches url into dst on fs. A partially written dst is removed
// when the fetch fails.
func ToFile(ctx context.Context, f Fetcher, fs afero.Fs, url, dst string) (int64, error) {
	if err := fs.MkdirAll(path.Dir(dst), 0o755); err != nil {
		return 0, errors.Wrapf(err, "create %s", path.Dir(dst))
	}
	out, err := fs.Create(dst)
	if err != nil {
		return 0, errors.Wrapf(err, "create %s", dst)
	}

	n, err := f.Fetch(ctx, url, out)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = errors.Wrapf(cerr, "close %s", dst)
	}
	if err != nil {
		_ = fs.Remove(dst)
		return 0, err
	}

	log.Debug().Str("url", url).Str("file", utils.RightWrap(dst, 100)).Str("size", humanize.Bytes(uint64(n))).Msg("Archive fetched")
	return n, nil
}
