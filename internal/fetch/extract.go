package fetch

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/evilmagics/kitti/internal/utils"
)

// IsZip reports whether the detected type is a zip archive or one of its
// descendants.
func IsZip(mime *mimetype.MIME) bool {
	for m := mime; m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}

// Extract unpacks the zip archive src into dst and returns the number of
// files written. Entries escaping dst are rejected.
func Extract(fs afero.Fs, src, dst string) (int, error) {
	f, err := fs.Open(src)
	if err != nil {
		return 0, errors.Wrapf(err, "open %s", src)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, errors.Wrapf(err, "stat %s", src)
	}
	mime, err := mimetype.DetectReader(f)
	if err != nil {
		return 0, errors.Wrapf(err, "read %s", src)
	}
	if !IsZip(mime) {
		return 0, errors.Wrapf(utils.ErrDownload, "%s is %s, not a zip archive", src, mime.String())
	}

	archive, err := zip.NewReader(f, info.Size())
	if err != nil {
		return 0, errors.Wrapf(utils.ErrDownload, "%s: %v", src, err)
	}

	root := filepath.Clean(dst) + string(os.PathSeparator)
	files := 0
	for _, entry := range archive.File {
		if strings.Contains(entry.Name, "__MACOSX") {
			continue
		}
		target := filepath.Join(dst, entry.Name)
		if !strings.HasPrefix(target+string(os.PathSeparator), root) {
			return files, errors.Wrapf(utils.ErrDownload, "%s: entry %s escapes %s", src, entry.Name, dst)
		}
		if entry.FileInfo().IsDir() {
			if err := fs.MkdirAll(target, 0o755); err != nil {
				return files, errors.Wrapf(err, "create %s", target)
			}
			continue
		}
		if err := extractFile(fs, entry, target); err != nil {
			return files, err
		}
		files++
	}

	log.Debug().Str("archive", src).Int("files", files).Msg("Archive extracted")
	return files, nil
}

func extractFile(fs afero.Fs, entry *zip.File, target string) error {
	if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(target))
	}
	rc, err := entry.Open()
	if err != nil {
		return errors.Wrapf(utils.ErrDownload, "%s: %v", entry.Name, err)
	}
	defer rc.Close()

	out, err := fs.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "create %s", target)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return errors.Wrapf(utils.ErrDownload, "%s: %v", entry.Name, err)
	}
	return errors.Wrapf(out.Close(), "close %s", target)
}
