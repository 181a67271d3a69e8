package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/labparse/internal/config"
	"github.com/jackzampolin/labparse/internal/output"
	"github.com/jackzampolin/labparse/internal/pipeline"
)

var watchSettle time.Duration

var reportExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".pdf":  true,
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Parse every report image dropped into a directory",
	Long: `Watch a directory and run the pipeline on each new image or PDF, one file
at a time. Reports are saved under ~/.labparse/reports; failures are logged with
their kind and the watcher keeps going.

Edits to the config file take effect for the next file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dir := args[0]

		a, err := loadApp()
		if err != nil {
			return err
		}
		if err := a.home.EnsureExists(); err != nil {
			return err
		}

		driver, err := a.newDriver(a.config.Get(), false)
		if err != nil {
			return err
		}
		w := &dirWatcher{app: a, driver: driver, settle: watchSettle}

		a.config.OnChange(func(cfg *config.Config) {
			d, err := a.newDriver(cfg, false)
			if err != nil {
				a.logger.Warn("config reload failed", "error", err)
				return
			}
			w.setDriver(d)
			a.logger.Info("config reloaded")
		})
		if a.config.ConfigFile() != "" {
			a.config.WatchConfig()
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer watcher.Close()
		if err := watcher.Add(dir); err != nil {
			return err
		}

		a.logger.Info("watching for reports", "dir", dir)
		return w.loop(ctx, watcher)
	},
}

// dirWatcher batches fsnotify events per file and processes settled files
// sequentially.
type dirWatcher struct {
	app    *app
	settle time.Duration

	mu     sync.Mutex
	driver *pipeline.Driver

	pending map[string]time.Time
	done    map[string]time.Time // path -> modtime processed
}

func (w *dirWatcher) setDriver(d *pipeline.Driver) {
	w.mu.Lock()
	w.driver = d
	w.mu.Unlock()
}

func (w *dirWatcher) currentDriver() *pipeline.Driver {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.driver
}

func (w *dirWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher) error {
	w.pending = make(map[string]time.Time)
	w.done = make(map[string]time.Time)

	interval := w.settle / 2
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !reportExts[strings.ToLower(filepath.Ext(ev.Name))] {
				continue
			}
			w.pending[ev.Name] = time.Now()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.app.logger.Warn("watch error", "error", err)
		case now := <-ticker.C:
			for path, seen := range w.pending {
				if now.Sub(seen) < w.settle {
					continue
				}
				delete(w.pending, path)
				if err := w.process(ctx, path); errors.Is(err, context.Canceled) {
					return nil
				}
			}
		}
	}
}

func (w *dirWatcher) process(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if last, ok := w.done[path]; ok && last.Equal(info.ModTime()) {
		return nil
	}
	w.done[path] = info.ModTime()

	cfg := w.app.config.Get()
	res, err := w.currentDriver().Run(ctx, path)
	w.app.flushMetrics(cfg)
	if err != nil {
		if f, ok := pipeline.AsFailure(err); ok && f.Kind == pipeline.FailureCancelled {
			return context.Canceled
		}
		return nil
	}

	dest := w.app.home.ReportPath(res.RunID, w.app.format.Ext())
	if err := output.WriteFile(dest, w.app.format, res.Report); err != nil {
		w.app.logger.Error("failed to save report", "source", path, "error", err)
		return nil
	}
	w.app.logger.Info("saved report", "source", path, "path", dest)
	return nil
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", time.Second, "wait this long after the last write before parsing a file")

	rootCmd.AddCommand(watchCmd)
}
