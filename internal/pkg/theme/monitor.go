package theme

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/miditap/miditap/internal/pkg/logger"
)

// DetectChanges reports writes to theme files under root until the
// context ends. The caller reloads the directory on every signal.
func DetectChanges(ctx context.Context, root string) <-chan bool {
	var change = make(chan bool)

	go func() {
		defer close(change)
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return
		}

		go func() {
			<-ctx.Done()
			err := watcher.Close()
			if err != nil {
				log.Info(fmt.Sprintf("closing watcher failed: %v", err), logger.Debug)
			}
		}()

		err = watcher.Add(root)
		if err != nil {
			log.Info(fmt.Sprintf("watching %s failed: %v", root, err), logger.Warning)
			return
		}

		for event := range watcher.Events {
			if event.Op != fsnotify.Write {
				continue
			}

			name := strings.ToLower(event.Name)
			if strings.HasSuffix(name, "toml") || strings.HasSuffix(name, "yaml") || strings.HasSuffix(name, "yml") {
				log.Info(fmt.Sprintf("theme change detected: %s", event.Name), logger.Info)
				change <- true
			}
		}
	}()

	return change
}
