// Command pixview shows a PPM image in the terminal and redraws it whenever
// the file changes on disk.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/treykane/pixview/internal/config"
	"github.com/treykane/pixview/internal/logging"
	"github.com/treykane/pixview/internal/termui"
	"github.com/treykane/pixview/internal/viewer"
	"github.com/treykane/pixview/internal/watch"
)

var log = logging.New("main")

// errUsage reports a wrong command line; main prints the usage line for it.
var errUsage = errors.New("usage: pixview <filename>")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr, newBackend); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newBackend(cfg config.Config) viewer.Backend {
	return termui.New(termui.Options{GlamourStyle: cfg.GlamourStyle})
}

func run(args []string, stdout, stderr io.Writer, backend func(config.Config) viewer.Backend) error {
	if len(args) != 1 {
		return errUsage
	}
	path := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The terminal backend owns the screen until Close returns, so log lines
	// go to the configured file or are held back until the screen is restored.
	if cfg.LogFile != "" {
		f, err := logging.OpenFile(cfg.LogFile)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer func() {
			logging.SetOutput(stderr)
			f.Close()
		}()
	} else {
		var held bytes.Buffer
		logging.SetOutput(&held)
		defer func() {
			logging.SetOutput(stderr)
			stderr.Write(held.Bytes())
		}()
	}

	opts, err := viewerOptions(cfg, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "viewing '%s'\n", path)

	c := viewer.New(path, backend(cfg), opts)
	defer func() {
		if err := c.Close(); err != nil {
			log.Warn("close viewer", "error", err)
		}
	}()
	if err := c.Start(); err != nil {
		return err
	}
	return c.Run()
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrNotConfigured) {
		return config.Default(), nil
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func viewerOptions(cfg config.Config, path string) (viewer.Options, error) {
	bg, err := cfg.BackgroundColor()
	if err != nil {
		return viewer.Options{}, err
	}
	opts := viewer.DefaultOptions()
	opts.Width = cfg.WindowWidth
	opts.Height = cfg.WindowHeight
	opts.Background = bg
	opts.Tick = cfg.TickInterval()

	switch cfg.WatchMode {
	case config.WatchNotify:
		n, err := watch.NewNotifier(path)
		if err != nil {
			log.Warn("file notifications unavailable, polling instead", "error", err)
			opts.Detector = watch.NewPoller()
		} else {
			opts.Detector = n
		}
	case config.WatchOff:
		opts.Detector = nil
	default:
		opts.Detector = watch.NewPoller()
	}
	return opts, nil
}
