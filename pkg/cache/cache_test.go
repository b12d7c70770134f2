package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var errPlain = errors.New("plain failure")

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// SHA-256 produces 64 hex chars
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	mtime := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	base := FileKeyOpts{Path: "photo/oak.jpg", Size: 1024, ModTime: mtime, MaxBytes: 8 << 20}

	pk := k.PhotoKey(base)
	if !strings.HasPrefix(pk, "photo:") {
		t.Errorf("PhotoKey() = %q, want photo: prefix", pk)
	}
	if pk != k.PhotoKey(base) {
		t.Error("PhotoKey should be deterministic")
	}

	mk := k.MapKey(base)
	if !strings.HasPrefix(mk, "map:") {
		t.Errorf("MapKey() = %q, want map: prefix", mk)
	}

	tests := []struct {
		name string
		opts FileKeyOpts
	}{
		{"path", FileKeyOpts{Path: "photo/pine.jpg", Size: 1024, ModTime: mtime, MaxBytes: 8 << 20}},
		{"size", FileKeyOpts{Path: "photo/oak.jpg", Size: 2048, ModTime: mtime, MaxBytes: 8 << 20}},
		{"mtime", FileKeyOpts{Path: "photo/oak.jpg", Size: 1024, ModTime: mtime.Add(time.Second), MaxBytes: 8 << 20}},
		{"limit", FileKeyOpts{Path: "photo/oak.jpg", Size: 1024, ModTime: mtime, MaxBytes: 1 << 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := k.PhotoKey(tt.opts); got == pk {
				t.Errorf("PhotoKey() with different %s = %q, want a different key", tt.name, got)
			}
		})
	}
}

func TestScopedKeyer(t *testing.T) {
	opts := FileKeyOpts{Path: "map/school.jpg", Size: 10}
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "school-a:")

	if got, want := scoped.PhotoKey(opts), "school-a:"+inner.PhotoKey(opts); got != want {
		t.Errorf("PhotoKey() = %q, want %q", got, want)
	}
	if got, want := scoped.MapKey(opts), "school-a:"+inner.MapKey(opts); got != want {
		t.Errorf("MapKey() = %q, want %q", got, want)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	opts := FileKeyOpts{Path: "photo/a.png"}
	scoped := NewScopedKeyer(nil, "prefix:")
	if got, want := scoped.PhotoKey(opts), "prefix:"+NewDefaultKeyer().PhotoKey(opts); got != want {
		t.Errorf("PhotoKey() = %q, want %q", got, want)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache() error: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Errorf("Get(missing) = hit %v, err %v; want miss", hit, err)
	}

	if err := c.Set(ctx, "photo:oak", []byte("data:image/png;base64,AAAA"), time.Hour); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	data, hit, err := c.Get(ctx, "photo:oak")
	if err != nil || !hit {
		t.Fatalf("Get() = hit %v, err %v; want hit", hit, err)
	}
	if string(data) != "data:image/png;base64,AAAA" {
		t.Errorf("Get() = %q, want stored value", data)
	}

	// Entries live under a two-character fan-out directory.
	h := Hash([]byte("photo:oak"))
	if _, err := os.Stat(filepath.Join(dir, h[:2], h[2:]+entryExt)); err != nil {
		t.Errorf("entry file not found: %v", err)
	}

	if err := c.Delete(ctx, "photo:oak"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "photo:oak"); hit {
		t.Error("Get() after Delete should miss")
	}
	if err := c.Delete(ctx, "photo:oak"); err != nil {
		t.Errorf("Delete() of missing key error: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error: %v", err)
	}

	if err := c.Set(ctx, "short", []byte("x"), time.Nanosecond); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "short"); hit {
		t.Error("expired entry should miss")
	}

	if err := c.Set(ctx, "forever", []byte("y"), 0); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("zero ttl entry should not expire")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache() error: %v", err)
	}
	h := Hash([]byte("bad"))
	path := filepath.Join(dir, h[:2], h[2:]+entryExt)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte{0, 1, 2}, 0644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "bad"); hit || err != nil {
		t.Errorf("Get(corrupt) = hit %v, err %v; want miss", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := NewRedisCache(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	if err == nil {
		c.Close()
		t.Fatal("NewRedisCache() with cancelled context should fail")
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	err := Retryable(ErrNetwork)
	if err == nil {
		t.Fatal("Retryable should return wrapped error")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("wrapped error should unwrap to ErrNetwork")
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}

	if IsRetryable(errPlain) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	old := retryDelay
	retryDelay = time.Millisecond
	defer func() { retryDelay = old }()

	ctx := context.Background()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should call once: %d", calls)
	}

	// Non-retryable error stops immediately
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return errPlain
	})
	if err != errPlain {
		t.Errorf("Should return non-retryable error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should not retry non-retryable error: %d", calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("Should retry once: %d", calls)
	}

	// Gives up after three attempts
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return Retryable(ErrNetwork)
	})
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("RetryWithBackoff() = %v, want ErrNetwork", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
