package main

import (
	"context"
	"log"
	"path/filepath"
	"time"

	vkr "github.com/Gaubbe/vk-ray-marcher"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// settle coalesces the burst of events an editor produces for one save
const settle = 100 * time.Millisecond

// shaderFiles lists the shader override files of cfg, without duplicates
func shaderFiles(cfg *vkr.Config) []string {
	var files []string
	for _, f := range []string{cfg.VertexShader, cfg.FragmentShader} {
		if f == "" {
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			abs = filepath.Clean(f)
		}
		dup := false
		for _, g := range files {
			if g == abs {
				dup = true
			}
		}
		if !dup {
			files = append(files, abs)
		}
	}
	return files
}

// shaderWatcher calls rebuild after any of its files was written or replaced.
// Directories are watched rather than the files, since editors often save by
// renaming a new file over the old one.
type shaderWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	rebuild func()
	logger  *log.Logger
}

func newShaderWatcher(files []string, rebuild func(), logger *log.Logger) (*shaderWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create watcher")
	}
	sw := &shaderWatcher{watcher: w, files: map[string]bool{}, rebuild: rebuild, logger: logger}
	dirs := map[string]bool{}
	for _, f := range files {
		sw.files[filepath.Clean(f)] = true
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, errors.Wrapf(err, "watch %s", dir)
		}
	}
	return sw, nil
}

func (w *shaderWatcher) relevant(event fsnotify.Event) bool {
	if !w.files[filepath.Clean(event.Name)] {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Run watches until ctx is done. It closes the watcher on return.
func (w *shaderWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	timer := time.NewTimer(settle)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				w.logger.Printf("%s changed", filepath.Base(event.Name))
				timer.Reset(settle)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Printf("shader watcher: %v", err)
		case <-timer.C:
			w.rebuild()
		}
	}
}
