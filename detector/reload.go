/*
DESCRIPTION
  reload.go provides Reloader, which watches model files and publishes a
  newly loaded, finalized Model whenever they change.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package detector

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/fsnotify/fsnotify"

	"github.com/ausocean/textdetect/patch"
)

// DefaultSettle is how long a Reloader waits after the last file event
// before reloading.
const DefaultSettle = 200 * time.Millisecond

// Reloader watches a dictionary file and its whitening statistics.
type Reloader struct {
	DictPath  string
	CovarPath string
	MeanPath  string // Optional.
	Mode      patch.Mode

	// Settle is the quiet period after a change before reloading. If zero
	// DefaultSettle is used.
	Settle time.Duration

	// OnLoad receives every successfully reloaded model.
	OnLoad func(*Model)

	Log logging.Logger
}

// Run watches the model files until ctx is done. Files are watched through
// their directories so that replacement by rename is seen. A reload that
// fails is logged and the previous model remains in use.
func (r *Reloader) Run(ctx context.Context) error {
	log := r.Log
	if log == nil {
		log = logging.New(logging.Error, io.Discard, true)
	}
	settle := r.Settle
	if settle == 0 {
		settle = DefaultSettle
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create file watcher: %w", err)
	}
	defer watcher.Close()

	files := map[string]bool{}
	dirs := map[string]bool{}
	for _, p := range []string{r.DictPath, r.CovarPath, r.MeanPath} {
		if p == "" {
			continue
		}
		p = filepath.Clean(p)
		files[p] = true
		dirs[filepath.Dir(p)] = true
	}
	for d := range dirs {
		err = watcher.Add(d)
		if err != nil {
			return fmt.Errorf("could not watch %s: %w", d, err)
		}
	}
	log.Info("watching model files", "dictionary", r.DictPath, "covariance", r.CovarPath)

	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !files[filepath.Clean(ev.Name)] || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			log.Debug("model file changed", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(settle)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warning("file watcher error", "error", err.Error())

		case <-timer.C:
			m, err := LoadModel(r.DictPath, r.CovarPath, r.MeanPath, r.Mode)
			if err != nil {
				log.Error("could not reload model", "error", err.Error())
				continue
			}
			log.Info("model reloaded", "D", m.D(), "K", m.K())
			if r.OnLoad != nil {
				r.OnLoad(m)
			}
		}
	}
}
