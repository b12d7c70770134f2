package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ecomap/pkg/observability"
)

// logHooks reports viewer, cache and image events to the CLI logger at
// debug level.
type logHooks struct {
	logger *log.Logger
}

func (h logHooks) OnSessionStart(_ context.Context, sessionID string) {
	h.logger.Debug("session started", "session", sessionID)
}

func (h logHooks) OnSessionEnd(_ context.Context, sessionID string, d time.Duration) {
	h.logger.Debug("session ended", "session", sessionID, "duration", d.Round(time.Millisecond))
}

func (h logHooks) OnSelect(_ context.Context, plantID, source string) {
	h.logger.Debug("plant selected", "id", plantID, "source", source)
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h logHooks) OnImageProcessed(_ context.Context, path string, before, after int64, d time.Duration) {
	h.logger.Debug("image processed", "path", path, "before", before, "after", after, "duration", d.Round(time.Millisecond))
}

func (h logHooks) OnImageError(_ context.Context, path string, err error) {
	h.logger.Debug("image failed", "path", path, "error", err)
}

// registerLogHooks routes every observability hook to the logger.
func (c *CLI) registerLogHooks() {
	h := logHooks{logger: c.Logger}
	observability.SetViewerHooks(h)
	observability.SetCacheHooks(h)
	observability.SetImageHooks(h)
}

var (
	_ observability.ViewerHooks = logHooks{}
	_ observability.CacheHooks  = logHooks{}
	_ observability.ImageHooks  = logHooks{}
)
