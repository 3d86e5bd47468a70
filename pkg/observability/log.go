package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/isomill/pkg/progress"
)

// LogHooks writes every event to a logger at debug level. Failed stages are
// logged at warn level.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks creates hooks that log to l.
func NewLogHooks(l *log.Logger) *LogHooks {
	return &LogHooks{logger: l.WithPrefix("obs")}
}

func (h *LogHooks) OnStageStart(_ context.Context, stage progress.Stage) {
	h.logger.Debug("stage start", "stage", stage)
}

func (h *LogHooks) OnStageComplete(_ context.Context, stage progress.Stage, items int, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("stage failed", "stage", stage, "items", items, "duration", d, "err", err)
		return
	}
	h.logger.Debug("stage done", "stage", stage, "items", items, "duration", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "key", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "key", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "key", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, path string) {
	h.logger.Debug("request", "method", method, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, path string, status int, d time.Duration) {
	h.logger.Debug("response", "method", method, "path", path, "status", status, "duration", d)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ ServerHooks   = (*LogHooks)(nil)
)
