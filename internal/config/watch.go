package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file at path whenever it is written or replaced
// and passes the file's values, over the defaults, to onChange. Flags and
// environment are not re-applied. Read and parse failures go to onError and
// watching continues. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Options), onError func(error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// editors replace files by rename, so watch the directory
	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			o := Defaults()
			if err := loadFile(target, &o); err != nil {
				onError(err)
				continue
			}
			o.Config = target
			onChange(&o)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			onError(err)
		}
	}
}
