// cmd/pagehound/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pagehound/pagehound/internal/api"
	"github.com/pagehound/pagehound/internal/browser"
	"github.com/pagehound/pagehound/internal/bulk"
	"github.com/pagehound/pagehound/internal/bus"
	"github.com/pagehound/pagehound/internal/config"
	"github.com/pagehound/pagehound/internal/export"
	"github.com/pagehound/pagehound/internal/monitoring"
	"github.com/pagehound/pagehound/internal/schedule"
	"github.com/pagehound/pagehound/internal/store"
	"github.com/pagehound/pagehound/internal/utils"
	"github.com/pagehound/pagehound/pkg/types"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "detect":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: URL required\n")
			fmt.Fprintf(os.Stderr, "Usage: pagehound detect <url> [--type <type>]\n")
			os.Exit(1)
		}
		runDetect(os.Args[2])

	case "run":
		urls := positionalArgs(os.Args[2:])
		if file := flagValue("--file"); file != "" {
			fileURLs, err := readURLFile(file)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			urls = append(urls, fileURLs...)
		}
		if len(urls) == 0 {
			fmt.Fprintf(os.Stderr, "Error: at least one URL required\n")
			fmt.Fprintf(os.Stderr, "Usage: pagehound run <url>... [--file urls.txt] [--type <type>] [--pages <n>]\n")
			os.Exit(1)
		}
		runBulk(urls)

	case "export":
		if dest := flagValue("--to"); dest != "" {
			runExportTo(dest)
			break
		}
		if len(os.Args) < 3 || strings.HasPrefix(os.Args[2], "-") {
			fmt.Fprintf(os.Stderr, "Error: format or --to destination required\n")
			fmt.Fprintf(os.Stderr, "Usage: pagehound export <csv|json|html|xlsx> [--type <type>] | export --to <driver://dsn>\n")
			os.Exit(1)
		}
		runExport(os.Args[2])

	case "capture":
		if len(os.Args) < 4 {
			fmt.Fprintf(os.Stderr, "Error: data type and value required\n")
			fmt.Fprintf(os.Stderr, "Usage: pagehound capture <type> <value>\n")
			os.Exit(1)
		}
		runCapture(os.Args[2], os.Args[3])

	case "selector":
		if len(os.Args) < 4 {
			fmt.Fprintf(os.Stderr, "Error: URL and selector required\n")
			fmt.Fprintf(os.Stderr, "Usage: pagehound selector <url> <css-selector>\n")
			os.Exit(1)
		}
		runSelector(os.Args[2], os.Args[3])

	case "serve":
		runServe()

	case "version", "--version", "-V":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}
}

// app bundles the wired subsystems for one command invocation.
type app struct {
	settings  *config.Settings
	store     *store.Store
	loader    bulk.Loader
	chrome    *browser.ChromeLoader
	metrics   *monitoring.Metrics
	exporter  *export.Exporter
	logger    utils.Logger
}

func setup() *app {
	logger := utils.NewLogger()
	if hasFlag("-v") || hasFlag("--verbose") {
		logger = utils.NewLoggerWithLevel(utils.DebugLevel)
	}

	settings := config.Default()
	if configFile := flagValue("--config"); configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		settings = loaded
	}

	st, err := store.Open(settings.StorePath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	a := &app{
		settings: settings,
		store:    st,
		metrics:  monitoring.NewMetrics(),
		logger:   logger,
	}
	if hasFlag("--http") {
		a.loader = browser.NewHTTPLoader(nil, settings.UserAgent)
	} else {
		a.chrome = browser.NewChromeLoader(browser.ChromeConfig{
			Headless:  settings.Headless,
			UserAgent: settings.UserAgent,
		}, logger)
		a.loader = a.chrome
	}
	a.exporter = export.New(export.Options{
		OutputDir:      settings.OutputDir,
		FilenameFormat: settings.ExportFilename,
		CSVDelimiter:   delimiterRune(settings.CSVDelimiter),
		IncludeHeaders: settings.IncludeHeaders,
	}, a.metrics, logger)
	return a
}

func (a *app) close() {
	if a.chrome != nil {
		a.chrome.Close()
	}
	a.store.Close()
}

func (a *app) controller() *bulk.Controller {
	return bulk.NewController(a.loader, a.store, a.settings, a.metrics, a.logger)
}

func runDetect(url string) {
	a := setup()
	defer a.close()

	ctx := context.Background()
	b := bus.New(a.store, a.loader, nil, a.exporter, nil, a.settings, a.logger)
	resp := b.Handle(ctx, bus.Message{
		Action:   bus.ActionAutoDetect,
		URL:      url,
		DataType: flagValue("--type"),
	})
	if !resp.Success {
		fmt.Fprintf(os.Stderr, "Error: %s\n", resp.Error)
		os.Exit(1)
	}

	counts, _ := resp.Data.(map[string]int)
	if len(counts) == 0 {
		fmt.Println("No data detected")
		return
	}
	for _, key := range types.DataTypeKeys {
		if counts[key] > 0 {
			fmt.Printf("  %-10s %d\n", key, counts[key])
		}
	}
	fmt.Println("Results merged into store")
}

func runBulk(urls []string) {
	a := setup()
	defer a.close()

	ctrl := a.controller()
	ctrl.OnProgress = func(p types.BulkProgress) {
		fmt.Printf("Progress: %d/%d\n", p.Completed, p.Total)
	}
	ctrl.OnComplete = func(c types.BulkComplete) {
		fmt.Printf("Bulk run complete: %d URLs\n", c.Count)
	}

	req := bulk.Request{
		URLs:       urls,
		DataType:   flagValue("--type"),
		SinglePage: hasFlag("--single"),
		Trigger:    "manual",
	}
	if pages := flagValue("--pages"); pages != "" {
		count, err := strconv.Atoi(pages)
		if err != nil || count < 1 {
			fmt.Fprintf(os.Stderr, "Error: --pages must be a positive number\n")
			os.Exit(1)
		}
		req.Pagination = types.Pagination{Enabled: true, PageCount: count}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := ctrl.Run(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Scraped %d pages (%d skipped)\n", result.Pages, result.Skipped)
}

func runExport(format string) {
	a := setup()
	defer a.close()

	scraped, err := a.store.LoadScraped()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	path, err := a.exporter.Export(scraped, flagValue("--type"), format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported to %s\n", path)
}

func runExportTo(dest string) {
	a := setup()
	defer a.close()

	scraped, err := a.store.LoadScraped()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	count, err := export.ExportTo(context.Background(), dest, scraped, a.logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d records\n", count)
}

func runCapture(dataType, value string) {
	a := setup()
	defer a.close()

	if err := a.store.Capture(dataType, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Captured %s value\n", dataType)
}

func runSelector(url, selector string) {
	a := setup()
	defer a.close()

	b := bus.New(a.store, a.loader, nil, a.exporter, nil, a.settings, a.logger)
	resp := b.Handle(context.Background(), bus.Message{
		Action:   bus.ActionExtractWithSelector,
		URL:      url,
		Selector: selector,
	})
	if !resp.Success {
		fmt.Fprintf(os.Stderr, "Error: %s\n", resp.Error)
		os.Exit(1)
	}
	output, _ := json.MarshalIndent(resp.Data, "", "  ")
	fmt.Println(string(output))
}

func runServe() {
	a := setup()
	defer a.close()

	ctrl := a.controller()
	scheduler := schedule.New(func(ctx context.Context, urls []string, dataType string) {
		_, err := ctrl.Run(ctx, bulk.Request{URLs: urls, DataType: dataType, Trigger: "schedule"})
		if err != nil {
			a.logger.WithField("error", err.Error()).Error("scheduled run failed")
		}
	}, a.logger)
	defer scheduler.Stop()
	scheduler.Update(a.settings.Schedule)

	b := bus.New(a.store, a.loader, ctrl, a.exporter, scheduler, a.settings, a.logger)
	server := api.NewServer(a.settings.ListenAddr, b, a.metrics, a.logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		fmt.Println("Shutting down...")
		if err := server.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

// hasFlag reports whether a flag appears anywhere on the command line.
func hasFlag(name string) bool {
	for _, arg := range os.Args[2:] {
		if arg == name {
			return true
		}
	}
	return false
}

// flagValue returns the value following a flag, or "".
func flagValue(name string) string {
	args := os.Args[2:]
	for i, arg := range args {
		if arg == name && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// boolFlags take no value; every other flag consumes the next argument.
var boolFlags = map[string]bool{
	"--single": true, "--http": true, "-v": true, "--verbose": true,
}

// positionalArgs returns the non-flag arguments, skipping flag values.
func positionalArgs(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			if !boolFlags[args[i]] {
				i++ // skip the flag's value
			}
			continue
		}
		out = append(out, args[i])
	}
	return out
}

func readURLFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read URL file: %w", err)
	}
	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	return urls, nil
}

func delimiterRune(delimiter string) rune {
	if delimiter == "" {
		return ','
	}
	return []rune(delimiter)[0]
}

func printVersion() {
	fmt.Printf("pagehound %s\n", version)
	fmt.Printf("  build time: %s\n", buildTime)
	fmt.Printf("  git commit: %s\n", gitCommit)
}

// printUsage displays help information
func printUsage() {
	fmt.Println("PageHound - Heuristic Web Data Extractor")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pagehound detect <url> [--type <type>]                 Scan one page and merge results")
	fmt.Println("  pagehound run <url>... [--type <type>] [--pages <n>]   Bulk scrape URLs sequentially")
	fmt.Println("  pagehound export <csv|json|html|xlsx> [--type <type>]  Export accumulated data")
	fmt.Println("  pagehound export --to <driver://dsn>                   Export into a database")
	fmt.Println("  pagehound capture <type> <value>                       Store a single captured value")
	fmt.Println("  pagehound selector <url> <css-selector>                Extract with a custom selector")
	fmt.Println("  pagehound serve                                        Run the HTTP message service")
	fmt.Println("  pagehound version                                      Show version information")
	fmt.Println("  pagehound help                                         Show this help message")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config <file>   Load settings from a YAML file")
	fmt.Println("  --http            Fetch pages over plain HTTP instead of headless Chrome")
	fmt.Println("  --file <file>     Read bulk URLs from a file, one per line")
	fmt.Println("  --single          Scrape one page per URL even when pagination is configured")
	fmt.Println("  -v, --verbose     Enable verbose output")
	fmt.Println()
	fmt.Println("Data types:")
	fmt.Println("  emails, phones, links, images, lists, business, products, jobs,")
	fmt.Println("  social, reviews, all (default)")
}
