package app

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var commandBuilder = exec.Command

// handleClipboard pipes the selected text into the clipboard command.
func (app *Application) handleClipboard() bool {
	text := app.state.Selection.Text()
	if text == "" {
		app.state.StatusMessage = "nothing selected"
		return true
	}
	if !app.clipboardAvail || len(app.clipboardCmd) == 0 {
		app.state.StatusMessage = "no clipboard command found"
		return true
	}

	cmd := commandBuilder(app.clipboardCmd[0], app.clipboardCmd[1:]...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		app.state.LastError = fmt.Errorf("%s: %w", app.clipboardCmd[0], err)
		return true
	}
	app.state.LastError = nil
	app.state.LastYankTime = time.Now()
	n := int64(len([]rune(text)))
	app.state.StatusMessage = fmt.Sprintf("yanked %s %s", humanize.Comma(n), plural(n, "character", "characters"))
	return true
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
