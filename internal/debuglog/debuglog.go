// Package debuglog writes diagnostic lines to a file when RDOC_DEBUG=1.
// The terminal belongs to the UI, so nothing is ever written to stderr.
package debuglog

import (
	"fmt"
	"os"
	"sync"
	"time"
)

const defaultPath = "rdoc-debug.log"

var (
	enabled = os.Getenv("RDOC_DEBUG") == "1"
	path    = logPath()
	mu      sync.Mutex
)

func logPath() string {
	if p := os.Getenv("RDOC_DEBUG_LOG"); p != "" {
		return p
	}
	return defaultPath
}

// Enabled reports whether debug logging is switched on.
func Enabled() bool {
	return enabled
}

// Printf appends one timestamped line tagged with scope.
func Printf(scope, format string, args ...interface{}) {
	if !enabled {
		return
	}
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	timestamp := time.Now().Format(time.RFC3339Nano)
	_, _ = fmt.Fprintf(f, "%s [%s] "+format+"\n", append([]interface{}{timestamp, scope}, args...)...)
	_ = f.Close()
}
