package observability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Viewer hooks
	v := NoopViewerHooks{}
	v.OnSessionStart(ctx, "session-1")
	v.OnSelect(ctx, "p1", "marker")
	v.OnSessionEnd(ctx, "session-1", time.Second)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "photo")
	c.OnCacheMiss(ctx, "photo")
	c.OnCacheSet(ctx, "photo", 1024)

	// Image hooks
	i := NoopImageHooks{}
	i.OnImageProcessed(ctx, "map/school-map.jpg", 2048, 1024, time.Second)
	i.OnImageError(ctx, "photo/broken.jpg", errors.New("bad header"))
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Viewer().(NoopViewerHooks); !ok {
		t.Error("Viewer() should return NoopViewerHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Image().(NoopImageHooks); !ok {
		t.Error("Image() should return NoopImageHooks by default")
	}

	// Set custom hooks
	customViewer := &testViewerHooks{}
	SetViewerHooks(customViewer)
	if Viewer() != customViewer {
		t.Error("SetViewerHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customImage := &testImageHooks{}
	SetImageHooks(customImage)
	if Image() != customImage {
		t.Error("SetImageHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Viewer().(NoopViewerHooks); !ok {
		t.Error("Reset() should restore NoopViewerHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testViewerHooks{}
	SetViewerHooks(custom)

	// Setting nil should be ignored
	SetViewerHooks(nil)

	if Viewer() != custom {
		t.Error("SetViewerHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testViewerHooks struct{ NoopViewerHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testImageHooks struct{ NoopImageHooks }
