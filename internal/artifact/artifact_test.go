package artifact

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"modelserve/internal/core"
)

type countingOpener struct {
	calls int
	store ObjectStore
	err   error
}

func (o *countingOpener) open(context.Context) (ObjectStore, error) {
	o.calls++
	return o.store, o.err
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

type stubStore struct {
	body    io.Reader
	openErr error
	opened  []string
}

func (s *stubStore) Open(_ context.Context, container, key string) (io.ReadCloser, error) {
	s.opened = append(s.opened, container+"/"+key)
	if s.openErr != nil {
		return nil, s.openErr
	}
	return io.NopCloser(s.body), nil
}

func (s *stubStore) Close() error { return nil }

func writeObject(t *testing.T, root, container, key, content string) {
	t.Helper()
	p := filepath.Join(root, container, key)
	if err := os.MkdirAll(filepath.Dir(p), core.DirPermission); err != nil {
		t.Fatalf("创建目录失败: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), core.FilePermissionReadWrite); err != nil {
		t.Fatalf("写入对象失败: %v", err)
	}
}

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation("gs://my-bucket/models/v1/model.onnx")
	if err != nil {
		t.Fatalf("ParseLocation failed: %v", err)
	}
	if loc.Scheme != "gs" || loc.Container != "my-bucket" || loc.Key != "models/v1/model.onnx" {
		t.Errorf("unexpected location: %+v", loc)
	}
	if loc.Format != core.ModelFormatONNX || loc.LocalName() != "model.onnx" {
		t.Errorf("format = %s, local name = %s", loc.Format, loc.LocalName())
	}
	if loc.String() != "gs://my-bucket/models/v1/model.onnx" {
		t.Errorf("String() = %s", loc.String())
	}
}

func TestParseLocation_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"Keras 格式不支持", "gs://bucket/model.h5", core.ErrUnsupportedFormat},
		{"无后缀", "gs://bucket/model", core.ErrUnsupportedFormat},
		{"大小写敏感", "gs://bucket/model.ONNX", core.ErrUnsupportedFormat},
		{"缺少 scheme", "bucket/model.onnx", core.ErrFetchFailed},
		{"空 scheme", "://bucket/model.onnx", core.ErrFetchFailed},
		{"缺少对象路径", "gs://model.onnx", core.ErrFetchFailed},
		{"空 container", "gs:///model.onnx", core.ErrFetchFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLocation(tt.raw)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseLocation(%q) error = %v, want %v", tt.raw, err, tt.want)
			}
		})
	}
}

func TestFetch_UnsupportedFormatMakesNoNetworkCall(t *testing.T) {
	opener := &countingOpener{store: &stubStore{body: strings.NewReader("x")}}
	f := NewFetcher(FetcherConfig{
		Dir:    t.TempDir(),
		Stores: map[string]StoreOpener{SchemeGCS: opener.open},
		Logger: &core.NopLogger{},
	})

	for _, raw := range []string{"gs://bucket/model.h5", "gs://bucket/model.keras", "gs://bucket/weights.pkl"} {
		_, _, err := f.Fetch(context.Background(), raw)
		if !errors.Is(err, core.ErrUnsupportedFormat) {
			t.Errorf("Fetch(%q) error = %v, want UnsupportedFormat", raw, err)
		}
	}
	if opener.calls != 0 {
		t.Errorf("store opened %d times for unsupported formats, want 0", opener.calls)
	}
}

func TestFetch_UnknownScheme(t *testing.T) {
	f := NewFetcher(FetcherConfig{Dir: t.TempDir()})
	_, _, err := f.Fetch(context.Background(), "s3://bucket/model.onnx")
	if !errors.Is(err, core.ErrFetchFailed) {
		t.Errorf("error = %v, want FetchFailed", err)
	}
}

func TestFetch_LocalStore(t *testing.T) {
	root := t.TempDir()
	dir := t.TempDir()
	writeObject(t, root, "bucket", "nested/net.json", `{"layers":[]}`)

	f := NewFetcher(FetcherConfig{Dir: dir, Stores: DefaultStores(root)})
	loc, localPath, err := f.Fetch(context.Background(), "file://bucket/nested/net.json")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if loc.Format != core.ModelFormatDense {
		t.Errorf("format = %s, want %s", loc.Format, core.ModelFormatDense)
	}
	if localPath != filepath.Join(dir, "model.json") {
		t.Errorf("local path = %s", localPath)
	}
	data, err := os.ReadFile(localPath)
	if err != nil || string(data) != `{"layers":[]}` {
		t.Errorf("downloaded content = %q, %v", data, err)
	}
}

func TestFetch_OverwritesPreviousArtifact(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "model.onnx"), []byte("old"), core.FilePermissionReadWrite); err != nil {
		t.Fatal(err)
	}
	store := &stubStore{body: strings.NewReader("new")}
	f := NewFetcher(FetcherConfig{
		Dir:    dir,
		Stores: map[string]StoreOpener{SchemeGCS: func(context.Context) (ObjectStore, error) { return store, nil }},
	})

	_, localPath, err := f.Fetch(context.Background(), "gs://bucket/a/b.onnx")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	data, _ := os.ReadFile(localPath)
	if string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
	if len(store.opened) != 1 || store.opened[0] != "bucket/a/b.onnx" {
		t.Errorf("opened = %v", store.opened)
	}
}

func TestFetch_StoreErrorsBecomeFetchFailed(t *testing.T) {
	tests := []struct {
		name   string
		opener StoreOpener
	}{
		{"凭证错误", func(context.Context) (ObjectStore, error) { return nil, errors.New("could not find default credentials") }},
		{"对象不存在", func(context.Context) (ObjectStore, error) {
			return &stubStore{openErr: errors.New("object not found")}, nil
		}},
		{"传输中断", func(context.Context) (ObjectStore, error) { return &stubStore{body: failingReader{}}, nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			f := NewFetcher(FetcherConfig{Dir: dir, Stores: map[string]StoreOpener{SchemeGCS: tt.opener}})
			_, _, err := f.Fetch(context.Background(), "gs://bucket/model.onnx")
			if !errors.Is(err, core.ErrFetchFailed) {
				t.Fatalf("error = %v, want FetchFailed", err)
			}
			if errors.Unwrap(err) == nil {
				t.Error("FetchFailed should carry the underlying cause")
			}
			entries, _ := os.ReadDir(dir)
			if len(entries) != 0 {
				t.Errorf("failed fetch should leave no files, found %d", len(entries))
			}
		})
	}
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	s := &LocalStore{Root: t.TempDir()}
	if _, err := s.Open(context.Background(), "bucket", "../../etc/passwd.json"); err == nil {
		t.Error("expected error for path traversal")
	}
	if _, err := s.Open(context.Background(), "..", "model.json"); err == nil {
		t.Error("expected error for traversal in container")
	}
}
