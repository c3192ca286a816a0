package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"

	apppkg "github.com/kk-code-lab/rdoc/internal/app"
	"github.com/kk-code-lab/rdoc/internal/config"
	"github.com/kk-code-lab/rdoc/internal/debuglog"
	"github.com/kk-code-lab/rdoc/internal/document"
	"github.com/kk-code-lab/rdoc/internal/highlight"
	"github.com/kk-code-lab/rdoc/internal/search"
	statepkg "github.com/kk-code-lab/rdoc/internal/state"
)

var version = "dev"

// errNoMatches makes a batch search without results exit with status 1.
var errNoMatches = errors.New("no matches")

func printHelp(w io.Writer) {
	fmt.Fprint(w, `rdoc - Terminal document viewer

USAGE:
    rdoc [OPTIONS] FILE

OPTIONS:
    -h, --help               Show this help message and exit
    -v, --version            Print the version and exit
    -c, --config PATH        Read settings from a JSON file
    -s, --search QUERY       Start with a search; prints matches when stdout is not a terminal
    -p, --page N             Open at page N (1-based)
        --pages LIST         Show only these pages, e.g. 0,2,2 or 3-7 (0-based)
        --fit MODE           Fit pages to the view: width, height or both
        --horizontal         Lay pages out left to right
        --auto-spacing       Centre each page in the view
        --fit-each-page      Fit every page on its own instead of the largest
        --whole-word         Match whole words only
        --match-case         Match case exactly
        --highlights PATH    Highlight database, or "off"
        --list-highlights    Print the saved highlights of FILE and exit

ENVIRONMENT:
    RDOC_FIT, RDOC_ORIENTATION, RDOC_SPACING, RDOC_MAX_ZOOM, ...  override the config file
    RDOC_DEBUG=1             Write a debug log to RDOC_DEBUG_LOG
`)
}

type cliOptions struct {
	path           string
	configPath     string
	search         string
	page           int
	pages          []int
	fit            string
	horizontal     bool
	autoSpacing    bool
	fitEachPage    bool
	wholeWord      bool
	matchCase      bool
	highlights     string
	listHighlights bool
	help           bool
	version        bool
}

// parseArgs reads os.Args[1:]. Value flags accept both "--flag value" and
// "--flag=value".
func parseArgs(args []string) (cliOptions, error) {
	var opts cliOptions
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			if opts.path != "" {
				return opts, fmt.Errorf("unexpected argument %q", arg)
			}
			opts.path = arg
			continue
		}
		if !hasValue {
			name = arg
		}

		needValue := func() (string, error) {
			if hasValue {
				return value, nil
			}
			if i+1 >= len(args) {
				return "", fmt.Errorf("%s requires a value", name)
			}
			i++
			return args[i], nil
		}

		var err error
		switch name {
		case "-h", "--help":
			opts.help = true
		case "-v", "--version":
			opts.version = true
		case "-c", "--config":
			opts.configPath, err = needValue()
		case "-s", "--search":
			opts.search, err = needValue()
		case "-p", "--page":
			var v string
			if v, err = needValue(); err == nil {
				opts.page, err = strconv.Atoi(v)
				if err == nil && opts.page < 1 {
					err = fmt.Errorf("--page must be at least 1")
				}
			}
		case "--pages":
			var v string
			if v, err = needValue(); err == nil {
				opts.pages, err = parsePageList(v)
			}
		case "--fit":
			opts.fit, err = needValue()
		case "--horizontal":
			opts.horizontal = true
		case "--auto-spacing":
			opts.autoSpacing = true
		case "--fit-each-page":
			opts.fitEachPage = true
		case "--whole-word":
			opts.wholeWord = true
		case "--match-case":
			opts.matchCase = true
		case "--highlights":
			opts.highlights, err = needValue()
		case "--list-highlights":
			opts.listHighlights = true
		default:
			return opts, fmt.Errorf("unknown option %s", name)
		}
		if err != nil {
			return opts, fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return opts, nil
}

// parsePageList accepts comma separated page indices and inclusive ranges.
func parsePageList(s string) ([]int, error) {
	var pages []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(lo)
		if err != nil {
			return nil, err
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(hi); err != nil {
				return nil, err
			}
		}
		if from < 0 || to < from {
			return nil, fmt.Errorf("bad page range %q", part)
		}
		for p := from; p <= to; p++ {
			pages = append(pages, p)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("empty page list")
	}
	return pages, nil
}

// defaultConfigPath returns the per-user config file if it exists.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, "rdoc", "config.json")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// resolveConfig layers the config file, the environment and the flags.
func resolveConfig(opts cliOptions, lookup func(string) (string, bool)) (config.Config, error) {
	cfg := config.Default()
	path := opts.configPath
	if path == "" {
		path = defaultConfigPath()
	}
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, err
	}
	if opts.fit != "" {
		cfg.Fit = opts.fit
	}
	if opts.horizontal {
		cfg.Orientation = "horizontal"
	}
	cfg.AutoSpacing = cfg.AutoSpacing || opts.autoSpacing
	cfg.FitEachPage = cfg.FitEachPage || opts.fitEachPage
	cfg.WholeWord = cfg.WholeWord || opts.wholeWord
	cfg.MatchCase = cfg.MatchCase || opts.matchCase
	if opts.highlights != "" {
		cfg.HighlightDB = opts.highlights
	}
	return cfg, cfg.Validate()
}

func openStore(cfg config.Config) (*highlight.Store, error) {
	path := cfg.HighlightDB
	if strings.EqualFold(path, "off") {
		return nil, nil
	}
	if path == "" {
		var err error
		if path, err = highlight.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return highlight.Open(path, highlight.DefaultConfig())
}

// runBatchSearch scans the whole document and prints every match inside
// its sentence, one per line.
func runBatchSearch(doc *document.Document, query string, flags document.FindFlags, w io.Writer) error {
	msgs := make(chan search.Message, 64)
	ctl := search.New(doc, func(m search.Message) { msgs <- m }, nil)
	defer ctl.Close()

	ctl.Start(query, flags)
	for ctl.Status() == search.StatusRunning {
		m := <-msgs
		ctl.Apply(m)
		if m.Kind == search.MessageDone && m.Err != nil {
			return m.Err
		}
	}
	if ctl.Total() == 0 {
		return errNoMatches
	}
	for _, page := range ctl.Pages() {
		for _, r := range ctl.SentencedResults(page) {
			fmt.Fprintf(w, "%d: %s\n", page+1, r.Sentence)
		}
	}
	return nil
}

func listHighlights(doc *document.Document, store *highlight.Store, path string, w io.Writer) error {
	saved, err := store.List(path)
	if err != nil {
		return err
	}
	for _, h := range saved {
		start, end := h.Range()
		snippet := ""
		if text, err := doc.Text(h.Page); err == nil {
			snippet = strings.Join(strings.Fields(text.Slice(start, end)), " ")
		}
		fmt.Fprintf(w, "%s  page %d  %q", h.ID[:8], h.Page+1, snippet)
		if h.Note != "" {
			fmt.Fprintf(w, "  (%s)", h.Note)
		}
		fmt.Fprintf(w, "  %s\n", humanize.Time(h.Created))
	}
	return nil
}

func run(args []string, stdout, stderr io.Writer, interactive bool) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	switch {
	case opts.help:
		printHelp(stdout)
		return nil
	case opts.version:
		fmt.Fprintf(stdout, "rdoc %s\n", version)
		return nil
	case opts.path == "":
		printHelp(stderr)
		return fmt.Errorf("missing FILE")
	}

	cfg, err := resolveConfig(opts, os.LookupEnv)
	if err != nil {
		return err
	}
	path, err := filepath.Abs(opts.path)
	if err != nil {
		return err
	}
	debuglog.Printf("main", "open %s pages=%v", path, opts.pages)

	if opts.listHighlights || (!interactive && opts.search != "") {
		doc, err := statepkg.OpenDocument(path, cfg, opts.pages, nil)
		if err != nil {
			return err
		}
		defer doc.Close()
		if opts.search != "" && !opts.listHighlights {
			return runBatchSearch(doc, opts.search, cfg.FindFlags(), stdout)
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		if store == nil {
			return fmt.Errorf("highlights are disabled")
		}
		defer store.Close()
		return listHighlights(doc, store, path, stdout)
	}
	if !interactive {
		return fmt.Errorf("stdout is not a terminal; use --search to print matches")
	}

	store, err := openStore(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: highlights disabled: %v\n", err)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	app, err := apppkg.NewApplication(apppkg.Options{
		Path:   path,
		Config: cfg,
		Pages:  opts.pages,
		Store:  store,
		Search: opts.search,
		Page:   opts.page - 1,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()
	app.Run()
	return nil
}

func main() {
	// Set UTF-8 as fallback encoding so non-ASCII text displays correctly.
	tcell.SetEncodingFallback(tcell.EncodingFallbackUTF8)

	interactive := term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
	if err := run(os.Args[1:], os.Stdout, os.Stderr, interactive); err != nil {
		if errors.Is(err, errNoMatches) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
