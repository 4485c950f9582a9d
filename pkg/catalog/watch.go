package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/tirecast/log"
)

// Watch observes the catalog file and the data directory. A changed catalog
// file is reloaded; listeners are notified for both kinds of changes.
// Watching stops when ctx is done.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if c.file != "" {
		// watch the directory, editors often replace the file
		if err := watcher.Add(filepath.Dir(c.file)); err != nil {
			c.l.Error("could not watch catalog file", log.ErrorField(err))
		}
	}
	dataDir := c.DataDir()
	if fi, err := os.Stat(dataDir); err == nil && fi.IsDir() {
		if err := watcher.Add(dataDir); err != nil {
			c.l.Error("could not watch data dir", log.ErrorField(err))
		}
	}
	go c.watchLoop(ctx, watcher)
	return nil
}

//nolint:cyclop // event dispatch
func (c *Catalog) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			c.l.Debug("context done, stopping catalog watch")
			return
		case event, ok := <-watcher.Events:
			if !ok {
				c.l.Info("watcher events channel closed, stopping catalog watch")
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {

				continue
			}
			c.l.Debug("change detected",
				log.String("file", event.Name), log.Any("event", event))
			switch {
			case c.file != "" && filepath.Clean(event.Name) == filepath.Clean(c.file):
				if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					continue
				}
				if err := c.reload(); err != nil {
					c.l.Error("could not reload catalog, keeping previous",
						log.ErrorField(err))
					continue
				}
				c.notify(event.Name)
			case strings.EqualFold(filepath.Ext(event.Name), ".csv"):
				c.notify(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				c.l.Info("watcher errors channel closed, stopping catalog watch")
				return
			}
			c.l.Error("watcher error", log.ErrorField(err))
		}
	}
}
