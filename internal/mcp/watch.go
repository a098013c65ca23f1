package mcp

import (
	"context"
	"os"
	"time"

	"repsim/internal/logging"
)

// ParentPollInterval is how often WatchParent checks the parent pid.
var ParentPollInterval = 2 * time.Second

// WatchParent calls cancel once the parent process goes away (the client
// that spawned the stdio server exited). It never reads stdin, which the
// stdio transport owns. The goroutine exits when ctx is done.
func WatchParent(ctx context.Context, cancel context.CancelFunc) {
	watchPid(ctx, os.Getppid, cancel)
}

func watchPid(ctx context.Context, getppid func() int, cancel context.CancelFunc) {
	ppid := getppid()
	go func() {
		ticker := time.NewTicker(ParentPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if getppid() != ppid {
					logging.New("mcp").Warn("parent process exited, shutting down", "ppid", ppid)
					cancel()
					return
				}
			}
		}
	}()
}
