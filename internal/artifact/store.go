package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
)

// Supported location schemes
const (
	SchemeGCS  = "gs"
	SchemeFile = "file"
)

// ObjectStore opens objects in a storage backend.
type ObjectStore interface {
	Open(ctx context.Context, container, key string) (io.ReadCloser, error)
	Close() error
}

// StoreOpener creates a client for one scheme. It is only called after the
// location passed format checks.
type StoreOpener func(ctx context.Context) (ObjectStore, error)

// GCSStore reads objects from Google Cloud Storage using application
// default credentials.
type GCSStore struct {
	client *storage.Client
}

// OpenGCSStore creates a GCS client.
func OpenGCSStore(ctx context.Context) (ObjectStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &GCSStore{client: client}, nil
}

func (s *GCSStore) Open(ctx context.Context, container, key string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(container).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("gs://%s/%s not found: %w", container, key, err)
		}
		return nil, err
	}
	return r, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

// LocalStore reads objects from <Root>/<container>/<key> on the local filesystem.
type LocalStore struct {
	Root string
}

// LocalStoreOpener returns a StoreOpener for a LocalStore rooted at root.
func LocalStoreOpener(root string) StoreOpener {
	return func(context.Context) (ObjectStore, error) {
		return &LocalStore{Root: root}, nil
	}
}

func (s *LocalStore) Open(_ context.Context, container, key string) (io.ReadCloser, error) {
	if containsPathTraversal(container) || containsPathTraversal(key) {
		return nil, fmt.Errorf("object path %s/%s escapes the store root", container, key)
	}
	root := s.Root
	if root == "" {
		root = string(filepath.Separator)
	}
	//nolint:gosec // G304: path is confined to the store root
	f, err := os.Open(filepath.Join(root, container, filepath.FromSlash(key)))
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *LocalStore) Close() error {
	return nil
}

func containsPathTraversal(p string) bool {
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}
