package config

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// waitFor is how long the file has to be quiet before a change is handled since
// one save can produce several events
var waitFor = 100 * time.Millisecond

// Watch calls 'onChange' with the re-parsed configuration each time the passed
// configuration file changes, until the context is cancelled. The directory is
// watched rather than the file so that editors which save by renaming a temp file
// over the original are seen. A file that doesn't parse is logged and skipped.
// The current configuration is not modified; that is up to the caller.
func Watch(ctx context.Context, configFile string, onChange func(Configuration)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	configFile = filepath.Clean(configFile)
	if err := watcher.Add(filepath.Dir(configFile)); err != nil {
		watcher.Close()
		return err
	}
	var mu sync.Mutex
	timer := time.AfterFunc(math.MaxInt64, func() {
		mu.Lock()
		defer mu.Unlock()
		contents, err := os.ReadFile(configFile)
		if err != nil {
			log.Warnf("unable to read changed configuration file %s: %s", configFile, err)
			return
		}
		cfg, err := parse(contents)
		if err != nil {
			log.Errorf("unable to parse changed configuration file %s: %s", configFile, err)
			return
		}
		log.Infof("configuration file %s changed", configFile)
		onChange(cfg)
	})
	timer.Stop()

	go func() {
		defer watcher.Close()
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("configuration file watcher error: %s", err)
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != configFile {
					continue
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}
				timer.Reset(waitFor)
			}
		}
	}()
	return nil
}
