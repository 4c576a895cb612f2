package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/fixora/kpiboard/internal/infra/logger"
	"github.com/fixora/kpiboard/internal/kpi"
)

// WatchScoringProfile reloads the scoring profile at path whenever it is
// written or replaced and hands the result to onChange. The parent
// directory is watched, so saves that rename a new file over path keep
// being seen. A profile that fails to load or validate is logged and
// skipped, so the previous scoring stays active. It blocks until ctx is
// cancelled.
func WatchScoringProfile(ctx context.Context, path string, base kpi.Scoring, log logger.Logger, onChange func(kpi.Scoring)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	fields := map[string]interface{}{"path": path}
	log.Info(ctx, "Watching scoring profile", fields)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			// A file renamed over path shows up as Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			scoring, err := LoadScoringProfile(path, base)
			if err != nil {
				log.Error(ctx, "Scoring profile reload failed, keeping previous scoring", err, fields)
				continue
			}

			log.Info(ctx, "Scoring profile reloaded", fields)
			onChange(scoring)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error(ctx, "Scoring profile watcher error", err, fields)
		}
	}
}
