package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ayusman/posehold/internal/challenge"
	"github.com/ayusman/posehold/internal/log"
)

// reloadDebounce collapses the burst of events editors emit on save.
const reloadDebounce = 250 * time.Millisecond

// watchSequence reloads the sequence file at path whenever it changes and
// passes each successfully parsed sequence to onChange. Files that fail to
// parse are logged and skipped. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so that
// editors which save by renaming a temp file are still picked up.
func watchSequence(ctx context.Context, path string, onChange func(challenge.Sequence)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		seq, err := challenge.LoadSequenceFile(abs)
		if err != nil {
			log.Warn("sequence reload failed", "path", abs, "err", err)
			return
		}
		log.Info("sequence reloaded", "path", abs, "poses", len(seq))
		onChange(seq)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, reload)
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("sequence watcher error", "err", err)
		}
	}
}

// WatchSequence reloads the sequence from path on every change until ctx
// is cancelled.
func (a *App) WatchSequence(ctx context.Context, path string) error {
	return watchSequence(ctx, path, func(seq challenge.Sequence) {
		if err := a.ReplaceSequence(ctx, seq); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("failed to apply reloaded sequence", "err", err)
		}
	})
}
