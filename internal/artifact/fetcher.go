package artifact

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"modelserve/internal/core"
)

// FetcherConfig configuration for Fetcher
type FetcherConfig struct {
	// Dir is where the local artifact is written.
	Dir string
	// Stores maps a location scheme to the opener for its backend.
	Stores map[string]StoreOpener
	Logger core.Logger
}

// Fetcher downloads an artifact to <Dir>/model<suffix>.
type Fetcher struct {
	dir    string
	stores map[string]StoreOpener
	logger core.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	dir := cfg.Dir
	if dir == "" {
		dir = core.DefaultArtifactDir
	}
	logger := cfg.Logger
	if logger == nil {
		logger = &core.NopLogger{}
	}
	stores := make(map[string]StoreOpener, len(cfg.Stores))
	for scheme, opener := range cfg.Stores {
		stores[scheme] = opener
	}
	return &Fetcher{dir: dir, stores: stores, logger: logger}
}

// DefaultStores returns the gs and file openers.
func DefaultStores(localRoot string) map[string]StoreOpener {
	return map[string]StoreOpener{
		SchemeGCS:  OpenGCSStore,
		SchemeFile: LocalStoreOpener(localRoot),
	}
}

// Fetch downloads raw to the local artifact file and returns the parsed
// location and the local path. The suffix is checked before any store is
// opened. Every other failure is reported as ErrFetchFailed.
func (f *Fetcher) Fetch(ctx context.Context, raw string) (Location, string, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return Location{}, "", err
	}

	opener, ok := f.stores[loc.Scheme]
	if !ok {
		return Location{}, "", core.FetchFailedError(raw, fmt.Errorf("no object store registered for scheme %q", loc.Scheme))
	}

	store, err := opener(ctx)
	if err != nil {
		return Location{}, "", core.FetchFailedError(raw, err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			f.logger.Warn("Failed to close object store client: %v", closeErr)
		}
	}()

	f.logger.Info("Downloading model from %s", loc)
	src, err := store.Open(ctx, loc.Container, loc.Key)
	if err != nil {
		return Location{}, "", core.FetchFailedError(raw, err)
	}
	defer func() { _ = src.Close() }()

	localPath := filepath.Join(f.dir, loc.LocalName())
	n, err := writeFileAtomic(localPath, src)
	if err != nil {
		return Location{}, "", core.FetchFailedError(raw, err)
	}

	f.logger.Info("Model downloaded to %s (%d bytes)", localPath, n)
	return loc, localPath, nil
}

// writeFileAtomic streams r into a temp file next to dst and renames it over dst.
func writeFileAtomic(dst string, r io.Reader) (int64, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, core.DirPermission); err != nil {
		return 0, fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(dst)+".*.partial")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return 0, fmt.Errorf("rename to %s: %w", dst, err)
	}
	committed = true
	return n, nil
}
