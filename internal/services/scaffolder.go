package services

import (
	"context"
	"os"
	"path"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/evilmagics/kitti/internal/fetch"
	"github.com/evilmagics/kitti/internal/scaffold"
	"github.com/evilmagics/kitti/internal/utils"
)

// DefaultWorkers is the number of archives fetched concurrently.
const DefaultWorkers = 6

// Scaffolder verifies dataset layouts and builds missing ones from their
// archives.
type Scaffolder struct {
	fs       afero.Fs
	registry *scaffold.Registry
	fetcher  fetch.Fetcher
	workers  int
}

type Option func(*Scaffolder)

func WithFs(fs afero.Fs) Option { return func(s *Scaffolder) { s.fs = fs } }

func WithRegistry(r *scaffold.Registry) Option { return func(s *Scaffolder) { s.registry = r } }

func WithFetcher(f fetch.Fetcher) Option { return func(s *Scaffolder) { s.fetcher = f } }

func WithWorkers(n int) Option {
	return func(s *Scaffolder) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewScaffolder returns a scaffolder on the OS filesystem, the default
// registry and a plain HTTP fetcher unless overridden.
func NewScaffolder(opts ...Option) *Scaffolder {
	s := &Scaffolder{
		fs:       afero.NewOsFs(),
		registry: scaffold.Default(),
		fetcher:  fetch.NewHTTPFetcher(0, false),
		workers:  DefaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scaffolder) Fs() afero.Fs { return s.fs }

func (s *Scaffolder) descriptor(name scaffold.Name, root string) (*scaffold.Descriptor, error) {
	if root == "" {
		return nil, errors.Wrapf(utils.ErrConfiguration, "empty root for %s", name)
	}
	return s.registry.Get(name)
}

func (s *Scaffolder) missing(paths []string, root string) []string {
	var out []string
	for _, p := range paths {
		if ok, _ := afero.Exists(s.fs, path.Join(root, p)); !ok {
			out = append(out, p)
		}
	}
	return out
}

// Missing lists the root relative paths of name absent from root.
func (s *Scaffolder) Missing(name scaffold.Name, root string) ([]string, error) {
	d, err := s.descriptor(name, root)
	if err != nil {
		return nil, err
	}
	return s.missing(d.Expected(), root), nil
}

// Verify reports whether every path of the layout exists under root.
func (s *Scaffolder) Verify(name scaffold.Name, root string) bool {
	return s.Check(name, root) == nil
}

// Check is Verify with an error naming every missing path. The result
// matches utils.ErrScaffold; multierr.Errors yields a summary followed by
// one error per missing path.
func (s *Scaffolder) Check(name scaffold.Name, root string) error {
	missing, err := s.Missing(name, root)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}

	errs := errors.Wrapf(utils.ErrScaffold, "%s incomplete at %s", name, root)
	for _, p := range missing {
		errs = multierr.Append(errs, errors.Errorf("missing %s", p))
	}
	return errs
}

// Ensure checks root and, when allowed, downloads what is missing.
func (s *Scaffolder) Ensure(ctx context.Context, name scaffold.Name, root string, download bool) error {
	err := s.Check(name, root)
	if err == nil || !download || !errors.Is(err, utils.ErrScaffold) {
		return err
	}

	log.Info().Str("dataset", string(name)).Str("root", root).Msg("Dataset incomplete, downloading")
	return s.Download(ctx, name, root)
}

// Download fetches and extracts every archive with missing paths, then
// verifies the result and writes the manifest. Archives run on a worker
// pool; a failed archive is cleaned up so the next call starts it over.
func (s *Scaffolder) Download(ctx context.Context, name scaffold.Name, root string) error {
	d, err := s.descriptor(name, root)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(root, os.ModePerm); err != nil {
		return errors.Wrapf(utils.ErrScaffold, "create %s: %v", root, err)
	}

	type job struct {
		archive scaffold.Archive
		missing []string
	}
	var jobs []job
	for _, a := range d.Archives {
		if m := s.missing(a.Provides, root); len(m) > 0 {
			jobs = append(jobs, job{archive: a, missing: m})
		}
	}

	pool, err := ants.NewPool(s.workers, ants.WithPreAlloc(true))
	if err != nil {
		return err
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures error
		progress = utils.NewIncrement(len(jobs))
	)
	fail := func(err error) {
		mu.Lock()
		failures = multierr.Append(failures, err)
		mu.Unlock()
	}

	for _, j := range jobs {
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if err := s.scaffoldArchive(ctx, j.archive, root, j.missing); err != nil {
				log.Warn().Err(err).Str("archive", j.archive.File()).Msg("Archive failed")
				fail(err)
				return
			}
			progress.Increase()
			log.Info().Str("archive", j.archive.File()).Str("progress", progress.String()).Msg("Archive scaffolded")
		})
		if err != nil {
			wg.Done()
			fail(errors.Wrapf(utils.ErrDownload, "%s: %v", j.archive.File(), err))
		}
	}
	wg.Wait()

	if failures != nil {
		return multierr.Append(errors.Wrapf(utils.ErrDownload, "%s at %s", name, root), failures)
	}
	if err := s.Check(name, root); err != nil {
		return err
	}
	if err := scaffold.NewManifest(d).Save(s.fs, root); err != nil {
		log.Warn().Err(err).Str("root", root).Msg("Manifest not written")
	}
	return nil
}

func (s *Scaffolder) scaffoldArchive(ctx context.Context, a scaffold.Archive, root string, missing []string) (err error) {
	zipPath := path.Join(root, a.File())
	defer func() {
		_ = s.fs.Remove(zipPath)
		s.cleanup(root, a.Sources())
		if err != nil {
			s.cleanup(root, missing)
		}
	}()

	if err = ctx.Err(); err != nil {
		return errors.Wrapf(utils.ErrDownload, "%s: %v", a.File(), err)
	}
	if _, err = fetch.ToFile(ctx, s.fetcher, s.fs, a.URL, zipPath); err != nil {
		return err
	}
	if _, err = fetch.Extract(s.fs, zipPath, root); err != nil {
		return err
	}
	for _, m := range a.Moves {
		if err = moveTree(s.fs, path.Join(root, m.From), path.Join(root, m.To)); err != nil {
			return errors.Wrapf(utils.ErrScaffold, "move %s to %s: %v", m.From, m.To, err)
		}
	}
	return nil
}

func (s *Scaffolder) cleanup(root string, paths []string) {
	for _, p := range paths {
		if err := s.fs.RemoveAll(path.Join(root, p)); err != nil {
			log.Warn().Err(err).Str("path", utils.RightWrap(p, 100)).Msg("Cleanup failed")
		}
	}
}

// moveTree renames every file under from to the same relative path under
// to, then drops from. Directory renames are not portable across afero
// backends, file renames are.
func moveTree(fs afero.Fs, from, to string) error {
	err := afero.Walk(fs, from, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel := p[len(from):]
		target := to + rel
		if info.IsDir() {
			return fs.MkdirAll(target, os.ModePerm)
		}
		return fs.Rename(p, target)
	})
	if err != nil {
		return err
	}
	return fs.RemoveAll(from)
}
