package host

import (
	"context"
	"time"

	"github.com/conneroisu/concat/internal/watcher"
)

// ReportFunc receives the outcome of every pass run by Watch.
type ReportFunc func(result *Result, err error)

// Watch runs a pass and then another one after every batch of changes to
// the files the previous pass depended on, until ctx is done. Created,
// deleted and renamed files make every plugin resolve its inputs again so
// new glob matches are picked up. Failed passes are reported, not returned.
func (h *Host) Watch(ctx context.Context, debounce time.Duration, report ReportFunc) error {
	if report == nil {
		report = func(*Result, error) {}
	}

	fw, err := watcher.NewFileWatcher(debounce, h.logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	fw.AddFilter(watcher.NoEditorTempFilter)
	fw.AddFilter(h.notEmitted)
	if err := fw.AddPath(h.contextDir); err != nil {
		return err
	}

	pass := func(ctx context.Context) {
		result, err := h.Build(ctx)
		report(result, err)

		if err := fw.Track(h.watchedFiles()); err != nil {
			h.logger.Warn(ctx, err, "Cannot watch dependencies")
		}
	}

	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		refresh := false
		for _, e := range events {
			h.logger.Debug(ctx, "File changed", "path", e.Path, "type", e.Type.String())

			switch {
			case e.Path == h.templatePath:
				if err := h.setupHTML(h.htmlConfig); err != nil {
					report(nil, err)

					return nil
				}
			case e.Type != watcher.EventTypeModified:
				refresh = true
			}
		}

		if refresh {
			for _, p := range h.plugins {
				p.Refresh()
			}
		}
		pass(ctx)

		return nil
	})

	pass(ctx)

	if err := fw.Start(ctx); err != nil {
		return err
	}
	h.logger.Info(ctx, "Watching for changes", "context", h.contextDir, "debounce", debounce.String())

	<-ctx.Done()

	return nil
}

func (h *Host) watchedFiles() []string {
	files := h.Dependencies()
	if h.templatePath != "" {
		files = append(files, h.templatePath)
	}

	return files
}

// notEmitted rejects the output directory and the files written by the
// previous pass.
func (h *Host) notEmitted(path string) bool {
	if path == h.outDir {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	_, ok := h.emitted[path]

	return !ok
}
