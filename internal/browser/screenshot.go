package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ScreenshotDebugger saves full-page screenshots of failed runs.
// A nil *ScreenshotDebugger is valid and captures nothing.
type ScreenshotDebugger struct {
	outputDir string
	logger    *zap.SugaredLogger
}

// NewScreenshotDebugger returns nil when dir is empty.
func NewScreenshotDebugger(dir string, logger *zap.SugaredLogger) *ScreenshotDebugger {
	if dir == "" {
		return nil
	}
	return &ScreenshotDebugger{outputDir: dir, logger: logger}
}

// CaptureAndLog writes <name>_<timestamp>.png and returns its path.
func (s *ScreenshotDebugger) CaptureAndLog(page Page, name, message string) (string, error) {
	if s == nil {
		return "", nil
	}
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	path := filepath.Join(s.outputDir, fmt.Sprintf("%s_%s.png", name, timestamp))
	s.logger.Infof("📸 %s", message)

	if err := page.Screenshot(path); err != nil {
		s.logger.Warnf("⚠️ Failed to capture screenshot: %v", err)
		return "", err
	}

	s.logger.Infof("   Screenshot saved: %s", path)
	return path, nil
}
