package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"modelserve/internal/core"
)

func TestFileStorage_LoadMissingFile(t *testing.T) {
	fs := NewFileStorage(filepath.Join(t.TempDir(), "stats.json"))

	stats, err := fs.LoadStats()
	if err != nil {
		t.Fatalf("不存在的文件不应报错: %v", err)
	}
	if stats.TotalRequests != 0 || stats.RequestHistory == nil {
		t.Errorf("期望空统计，实际 %+v", stats)
	}
}

func TestFileStorage_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	fs := NewFileStorage(path)

	now := time.Now().Truncate(time.Second)
	in := &core.RequestStats{
		TotalRequests:      3,
		SuccessfulRequests: 2,
		FailedRequests:     1,
		CacheHits:          1,
		LastRequestTime:    now,
		RequestHistory: []core.RequestRecord{
			{Timestamp: now, Success: true, ResponseTime: 12, Format: "onnx"},
		},
	}
	if err := fs.SaveStats(in); err != nil {
		t.Fatalf("SaveStats failed: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("临时文件应已被重命名")
	}

	out, err := fs.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats failed: %v", err)
	}
	if out.TotalRequests != 3 || out.FailedRequests != 1 || out.CacheHits != 1 {
		t.Errorf("统计不一致: %+v", out)
	}
	if len(out.RequestHistory) != 1 || out.RequestHistory[0].Format != "onnx" {
		t.Errorf("历史记录不一致: %+v", out.RequestHistory)
	}
	if !out.LastRequestTime.Equal(now) {
		t.Errorf("LastRequestTime = %v, want %v", out.LastRequestTime, now)
	}
}

func TestFileStorage_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.json")
	if err := os.WriteFile(path, []byte("{not json"), core.FilePermissionReadWrite); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStorage(path).LoadStats(); err == nil {
		t.Error("损坏的文件应返回错误")
	}
}

func TestNewFileStorage_DefaultPath(t *testing.T) {
	if fs := NewFileStorage(""); fs.filePath != core.StatsFilePath {
		t.Errorf("默认路径应为 %s，实际 %s", core.StatsFilePath, fs.filePath)
	}
}

func TestNewRedisStorage_InvalidURL(t *testing.T) {
	if _, err := NewRedisStorage(RedisStorageConfig{URL: "not-a-redis-url"}); err == nil {
		t.Error("非法的 Redis URL 应返回错误")
	}
}

func TestInitStorage_FallsBackToFile(t *testing.T) {
	t.Setenv(core.EnvRedisURL, "")
	st := InitStorage(&core.NopLogger{})
	defer func() { _ = st.Close() }()

	if _, ok := st.(*FileStorage); !ok {
		t.Errorf("未设置 REDIS_URL 时应使用文件存储，实际 %T", st)
	}
}

func TestInitStorage_UnreachableRedis(t *testing.T) {
	t.Setenv(core.EnvRedisURL, "redis://127.0.0.1:1/0")
	st := InitStorage(&core.NopLogger{})
	defer func() { _ = st.Close() }()

	if _, ok := st.(*FileStorage); !ok {
		t.Errorf("Redis 不可达时应回退到文件存储，实际 %T", st)
	}
}
