package ui

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

type reloadMsg struct{}

// fileWatcher reports writes to a single file.
type fileWatcher struct {
	path    string
	watcher *fsnotify.Watcher
}

func newFileWatcher(path string) *fileWatcher {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error("error creating fsnotify watcher", "error", err)
		return nil
	}
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		log.Error("error adding dir to fsnotify watcher", "error", err)
		_ = w.Close()
		return nil
	}
	log.Info("fsnotify watching dir", "dir", dir)
	return &fileWatcher{path: path, watcher: w}
}

// wait returns a command that blocks until the file changes.
func (fw *fileWatcher) wait() tea.Cmd {
	if fw == nil {
		return nil
	}
	return func() tea.Msg {
		for {
			select {
			case event, ok := <-fw.watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(event.Name) != filepath.Clean(fw.path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
				return reloadMsg{}
			case err, ok := <-fw.watcher.Errors:
				if !ok {
					return nil
				}
				log.Debug("fsnotify error", "file", fw.path, "error", err)
			}
		}
	}
}

func (fw *fileWatcher) close() {
	if fw == nil {
		return
	}
	if err := fw.watcher.Close(); err != nil {
		log.Error("fsnotify fail to close watcher", "file", fw.path, "error", err)
	}
}
