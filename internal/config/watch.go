package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"Prism3D/internal/logger"
	"Prism3D/internal/renderer"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// settleDelay collapses the burst of events an editor produces for one save.
const settleDelay = 100 * time.Millisecond

// Watch reloads path whenever it changes and passes the new frame settings
// to onChange. Other sections need a restart; edits to them are logged and
// ignored. Files that fail to load are reported and skipped. onChange runs
// on the watcher goroutine. Watching stops when ctx is cancelled.
func Watch(ctx context.Context, path string, onChange func(renderer.FrameSettings)) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	current, err := Load(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	// Editors often replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", path, err)
	}
	logger.Log.Info("Watching config", zap.String("file", path))

	go func() {
		defer watcher.Close()
		settle := time.NewTimer(settleDelay)
		settle.Stop()
		for {
			select {
			case <-ctx.Done():
				settle.Stop()
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					settle.Reset(settleDelay)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Log.Warn("Config watcher error", zap.Error(err))
			case <-settle.C:
				current = reload(path, current, onChange)
			}
		}
	}()
	return nil
}

func reload(path string, current File, onChange func(renderer.FrameSettings)) File {
	if _, err := os.Stat(path); err != nil {
		logger.Log.Warn("Config file missing, keeping settings", zap.String("file", path))
		return current
	}
	next, err := Load(path)
	if err != nil {
		logger.Log.Warn("Config reload failed, keeping settings", zap.Error(err))
		return current
	}
	if next.Pipeline != current.Pipeline || next.Window != current.Window {
		logger.Log.Warn("Window and pipeline changes apply on restart", zap.String("file", path))
	}
	if next.Frame != current.Frame {
		logger.Log.Info("Frame settings reloaded",
			zap.Float32("exposure", next.Frame.Exposure),
			zap.Float32("bloomStrength", next.Frame.BloomStrength),
			zap.Stringer("debugView", next.Frame.DebugView))
		onChange(next.Frame)
	}
	current.Frame = next.Frame
	return current
}
