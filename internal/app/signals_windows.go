//go:build windows

package app

import (
	"os"

	"golang.org/x/sys/windows"

	"github.com/kk-code-lab/rdoc/internal/debuglog"
)

func contSignals() []os.Signal {
	return nil
}

// flushPendingInput drops keys typed while the document was loading so
// they are not replayed as commands.
func flushPendingInput() {
	in, err := windows.GetStdHandle(windows.STD_INPUT_HANDLE)
	if err == nil {
		err = windows.FlushConsoleInputBuffer(in)
	}
	if err != nil {
		debuglog.Printf("app", "flush console input: %v", err)
	}
}
