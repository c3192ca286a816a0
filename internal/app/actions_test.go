package app

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/kk-code-lab/rdoc/internal/config"
)

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	code, err := strconv.Atoi(os.Getenv("HELPER_PROCESS_EXIT"))
	if err != nil {
		code = 1
	}
	os.Exit(code)
}

func newTestScreen(t *testing.T) tcell.Screen {
	t.Helper()
	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatalf("failed to init screen: %v", err)
	}
	screen.SetSize(20, 11)
	t.Cleanup(func() {
		screen.Fini()
	})
	return screen
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.CellWidth, cfg.CellHeight = 10, 20
	cfg.MinColumns, cfg.LinesPerPage = 20, 5
	cfg.Spacing = 0
	return cfg
}

// newTestApplication opens a four page document on a 20x11 simulation
// screen. Pages are separated by form feeds.
func newTestApplication(t *testing.T, opts Options) *Application {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.txt")
	body := "alpha one\fbeta two\falpha three\fgamma"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	opts.Path = path
	opts.Config = testConfig()
	app, err := newApplication(newTestScreen(t), opts)
	if err != nil {
		t.Fatalf("newApplication: %v", err)
	}
	t.Cleanup(func() { _ = app.state.Close() })
	return app
}

func withFakeCommandBuilder(t *testing.T, exitCode int, recorded *[]string, fn func()) {
	t.Helper()
	orig := commandBuilder
	commandBuilder = func(name string, args ...string) *exec.Cmd {
		*recorded = append([]string{name}, args...)
		return helperProcessCommand(exitCode, name, args...)
	}
	defer func() {
		commandBuilder = orig
	}()
	fn()
}

func helperProcessCommand(exitCode int, name string, args ...string) *exec.Cmd {
	cmdArgs := []string{"-test.run=TestHelperProcess", "--", name}
	cmdArgs = append(cmdArgs, args...)
	cmd := exec.Command(os.Args[0], cmdArgs...)
	cmd.Env = append(os.Environ(),
		"GO_WANT_HELPER_PROCESS=1",
		"HELPER_PROCESS_EXIT="+strconv.Itoa(exitCode),
	)
	return cmd
}

func assertCommandRecorded(t *testing.T, recorded, want []string) {
	t.Helper()
	if len(recorded) != len(want) {
		t.Fatalf("expected command %v, got %v", want, recorded)
	}
	for i := range want {
		if recorded[i] != want[i] {
			t.Fatalf("expected command %v, got %v", want, recorded)
		}
	}
}

func TestHandleClipboardWithoutSelection(t *testing.T) {
	app := newTestApplication(t, Options{})
	app.clipboardAvail = true
	app.clipboardCmd = []string{"fake-clip"}

	var recorded []string
	withFakeCommandBuilder(t, 0, &recorded, func() {
		app.handleClipboard()
	})
	if recorded != nil {
		t.Fatalf("no command should run without a selection, ran %v", recorded)
	}
	if app.state.StatusMessage != "nothing selected" {
		t.Fatalf("status=%q", app.state.StatusMessage)
	}
}

func TestHandleClipboardSetsLastErrorOnFailure(t *testing.T) {
	app := newTestApplication(t, Options{})
	app.state.Selection.SetSelection(0, 0, 5)
	app.clipboardAvail = true
	app.clipboardCmd = []string{"fake-clip", "--flag"}

	var recorded []string
	withFakeCommandBuilder(t, 7, &recorded, func() {
		app.handleClipboard()
	})

	if app.state.LastError == nil {
		t.Fatalf("expected clipboard failure to set LastError")
	}
	if got := app.state.LastError.Error(); !strings.Contains(got, "fake-clip") {
		t.Fatalf("expected error mentioning command, got %q", got)
	}
	if !app.state.LastYankTime.IsZero() {
		t.Fatalf("expected LastYankTime to remain zero on failure")
	}
	assertCommandRecorded(t, recorded, []string{"fake-clip", "--flag"})
}

func TestHandleClipboardUpdatesYankTimeOnSuccess(t *testing.T) {
	app := newTestApplication(t, Options{})
	app.state.Selection.SetSelection(0, 0, 5)
	app.clipboardAvail = true
	app.clipboardCmd = []string{"fake-clip"}

	var recorded []string
	withFakeCommandBuilder(t, 0, &recorded, func() {
		app.handleClipboard()
	})

	if app.state.LastYankTime.IsZero() {
		t.Fatalf("expected LastYankTime to update on success")
	}
	if app.state.StatusMessage != "yanked 5 characters" {
		t.Fatalf("status=%q", app.state.StatusMessage)
	}
	assertCommandRecorded(t, recorded, []string{"fake-clip"})
}

func TestDetectClipboardInternal(t *testing.T) {
	tests := []struct {
		name      string
		goos      string
		available []string
		want      []string
	}{
		{"mac", "darwin", []string{"pbcopy"}, []string{"/bin/pbcopy"}},
		{"xclip targets clipboard", "linux", []string{"xclip"}, []string{"/bin/xclip", "-selection", "clipboard"}},
		{"wayland preferred", "linux", []string{"xclip", "wl-copy"}, []string{"/bin/wl-copy"}},
		{"windows powershell", "windows", []string{"pwsh"}, []string{"/bin/pwsh", "-NoLogo", "-NoProfile", "-Command", "Set-Clipboard"}},
		{"powershell only on windows", "linux", []string{"pwsh"}, nil},
		{"nothing", "linux", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookPath := func(name string) (string, error) {
				for _, a := range tt.available {
					if a == name {
						return "/bin/" + name, nil
					}
				}
				return "", exec.ErrNotFound
			}
			got, ok := detectClipboardInternal(tt.goos, lookPath)
			if ok != (tt.want != nil) {
				t.Fatalf("ok=%v", ok)
			}
			assertCommandRecorded(t, got, tt.want)
		})
	}
}
