// CLAUDE:SUMMARY CLI entry point for mathdisplay: live page typesetting via Rod or chromedp, params detection, host bridge.
// Command mathdisplay drives math typesetting in a live page.
//
// Usage:
//
//	mathdisplay -url https://example.com/h5p/1             # typeset a live page
//	mathdisplay -url ... -config mathdisplay.yaml          # with a config file
//	mathdisplay -url ... -db h5p.db -library H5P.Column    # with a stored library config
//	mathdisplay -url ... -listen :8089                     # expose the host bridge
//	mathdisplay -detect params.json                        # check content params for math
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/mathdisplay"
	"github.com/hazyhaar/mathdisplay/internal/browser"
	"github.com/hazyhaar/mathdisplay/internal/page"
	"github.com/hazyhaar/mathdisplay/mathdetect"
)

type options struct {
	configPath string
	dbPath     string
	library    string
	pageURL    string
	detect     string
	listen     string
	driver     string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to mathdisplay.yaml config file")
	flag.StringVar(&o.dbPath, "db", "", "SQLite database holding library_config")
	flag.StringVar(&o.library, "library", "", "host library whose stored config applies")
	flag.StringVar(&o.pageURL, "url", "", "page to typeset")
	flag.StringVar(&o.detect, "detect", "", "check a content params JSON file for math (- for stdin) and exit")
	flag.StringVar(&o.listen, "listen", "", "address of the host bridge HTTP server (empty: disabled)")
	flag.StringVar(&o.driver, "driver", "", "browser driver: rod, chromedp (default from config)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("mathdisplay: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	if o.detect != "" {
		return runDetect(o.detect, os.Stdout)
	}
	if o.pageURL == "" {
		fmt.Fprintln(os.Stderr, "usage: mathdisplay -url <url> [-config <file>] [-db <file> -library <name>] [-listen <addr>] | -detect <file>")
		os.Exit(2)
	}

	cfg, err := loadConfig(ctx, o)
	if err != nil {
		return err
	}
	if o.driver != "" {
		cfg.Browser.Driver = o.driver
	}
	return runPage(ctx, logger, cfg, o)
}

func runDetect(path string, w io.Writer) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read params: %w", err)
	}
	return json.NewEncoder(w).Encode(map[string]bool{"math": mathdetect.ContainsMathJSON(data)})
}

// loadConfig layers the config file over the stored library config (or
// the defaults).
func loadConfig(ctx context.Context, o options) (*mathdisplay.Config, error) {
	cfg := mathdisplay.DefaultConfig()
	if o.dbPath != "" {
		db, err := mathdisplay.OpenLibraryStore(ctx, o.dbPath)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		cfg, err = mathdisplay.LoadLibraryConfig(ctx, db, o.library)
		if err != nil {
			return nil, fmt.Errorf("load library config: %w", err)
		}
	}
	if o.configPath != "" {
		data, err := os.ReadFile(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		over, err := mathdisplay.DecodeConfig(data)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = mathdisplay.MergeConfig(cfg, over)
	}
	return cfg, nil
}

// livePage is a page runtime with the observer binding attached.
type livePage interface {
	page.Runtime
	Listen(ctx context.Context, b *browser.Bridge) error
}

func runPage(ctx context.Context, logger *slog.Logger, cfg *mathdisplay.Config, o options) error {
	bcfg := browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Headful:          cfg.Browser.Headful,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Logger:           logger,
	}

	var rt livePage
	switch cfg.Browser.Driver {
	case "", "rod":
		rp, err := browser.OpenRod(ctx, bcfg, o.pageURL)
		if err != nil {
			return err
		}
		defer rp.Close()
		rt = rp
	case "chromedp":
		cdp, err := browser.OpenCDP(ctx, bcfg, o.pageURL)
		if err != nil {
			return err
		}
		defer cdp.Close()
		rt = cdp
	default:
		return fmt.Errorf("unknown browser driver %q", cfg.Browser.Driver)
	}

	bridge := browser.NewBridge(rt, cfg.Container, logger)
	if err := rt.Listen(ctx, bridge); err != nil {
		return err
	}
	if err := bridge.Inject(ctx); err != nil {
		return err
	}
	root, err := bridge.Root(ctx)
	if err != nil {
		return err
	}
	go bridge.Run(ctx)

	h, err := mathdisplay.NewHosts(cfg.Hosts, logger)
	if err != nil {
		return err
	}
	if len(cfg.Hosts) == 0 {
		h = mathdisplay.NewStdoutHost(nil)
	}
	defer h.Close()

	d, err := mathdisplay.New(cfg,
		mathdisplay.WithLogger(logger),
		mathdisplay.WithRuntime(rt),
		mathdisplay.WithHost(h),
		mathdisplay.WithContainer(root),
		mathdisplay.WithRecords(bridge.Records()))
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		// The page stays usable without typesetting.
		logger.Warn("mathdisplay: display inert", "error", err)
	}
	defer d.Stop()

	if o.listen != "" {
		srv := &http.Server{
			Addr:              o.listen,
			Handler:           newBridgeRouter(d, bridge.Mirror().Node, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("mathdisplay: host bridge listening", "addr", o.listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("mathdisplay: host bridge", "error", err)
			}
		}()
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutCtx)
		}()
	}

	<-ctx.Done()
	return nil
}
