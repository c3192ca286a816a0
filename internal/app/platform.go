package app

import (
	"os/exec"
	"runtime"
)

// clipboardTool is a command that copies its stdin to the system clipboard.
type clipboardTool struct {
	names []string
	args  []string
	goos  string // empty matches every platform
}

// clipboardTools is tried in order; the first command found on PATH wins.
var clipboardTools = []clipboardTool{
	{names: []string{"clip.exe", "clip"}, goos: "windows"},
	{names: []string{"powershell", "powershell.exe", "pwsh"}, args: []string{"-NoLogo", "-NoProfile", "-Command", "Set-Clipboard"}, goos: "windows"},
	{names: []string{"pbcopy"}},
	{names: []string{"wl-copy"}},
	// Without these flags xclip and xsel write the primary selection.
	{names: []string{"xclip"}, args: []string{"-selection", "clipboard"}},
	{names: []string{"xsel"}, args: []string{"--clipboard", "--input"}},
}

func detectClipboard() ([]string, bool) {
	return detectClipboardInternal(runtime.GOOS, exec.LookPath)
}

func detectClipboardInternal(goos string, lookPath func(string) (string, error)) ([]string, bool) {
	for _, tool := range clipboardTools {
		if tool.goos != "" && tool.goos != goos {
			continue
		}
		for _, name := range tool.names {
			path, err := lookPath(name)
			if err != nil || path == "" {
				continue
			}
			return append([]string{path}, tool.args...), true
		}
	}
	return nil, false
}
