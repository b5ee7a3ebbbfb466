// Command heredity prints the posterior gene and trait distributions of every
// member of a family read from a CSV, YAML or JSON file.
//
//	heredity [flags] data.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"heredity/internal/codec"
	"heredity/internal/config"
	"heredity/internal/domain"
	"heredity/internal/inference"
	"heredity/internal/logging"
	"heredity/internal/model"
	"heredity/internal/watcher"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	format     string
	output     string
	workers    int
	watch      bool
	verbose    bool
	dataPath   string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("heredity", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: heredity [flags] data.csv")
		fs.PrintDefaults()
	}

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "config file (default: search standard locations)")
	fs.StringVar(&opts.format, "format", "", "input format: csv, yaml or json (default: from file extension)")
	fs.StringVar(&opts.output, "output", "text", "output format: text or json")
	fs.IntVar(&opts.workers, "workers", 0, "goroutines scoring worlds (default: from config)")
	fs.BoolVar(&opts.watch, "watch", false, "re-run whenever the data file changes")
	fs.BoolVar(&opts.verbose, "v", false, "log at debug level")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errors.New("expected exactly one data file")
	}
	if opts.output != "text" && opts.output != "json" {
		return nil, fmt.Errorf("invalid -output %q: want text or json", opts.output)
	}
	if opts.workers < 0 {
		return nil, fmt.Errorf("invalid -workers %d", opts.workers)
	}
	opts.dataPath = fs.Arg(0)
	return &opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, "heredity:", err)
		return exitUsage
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintln(stderr, "heredity:", err)
		return exitError
	}

	level := cfg.Log.Level
	if opts.verbose {
		level = "debug"
	}
	log, err := logging.Configure(logging.Options{
		Level:  level,
		Format: cfg.Log.Format,
		Output: stderr,
		Logger: logrus.New(),
	})
	if err != nil {
		fmt.Fprintln(stderr, "heredity:", err)
		return exitError
	}

	engine, err := newEngine(cfg, opts.workers, log)
	if err != nil {
		log.WithError(err).Error("Invalid model")
		return exitError
	}

	c := &cli{opts: opts, cfg: cfg, engine: engine, stdout: stdout}
	if err := c.infer(ctx); err != nil {
		log.WithError(err).Error("Inference failed")
		if !opts.watch {
			return exitError
		}
	}

	if !opts.watch {
		return exitOK
	}

	w := watcher.New([]string{opts.dataPath}, func(string) {
		if err := c.infer(ctx); err != nil {
			log.WithError(err).Error("Inference failed")
		}
	}).WithLogger(log)
	if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("Watch failed")
		return exitError
	}
	return exitOK
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, _, err := config.LoadFromPath(path)
		return cfg, err
	}
	cfg, _, err := config.Load()
	return cfg, err
}

func newEngine(cfg *config.Config, workers int, log logrus.FieldLogger) (*inference.Engine, error) {
	params, err := cfg.Model.Params()
	if err != nil {
		return nil, err
	}
	m, err := model.New(params)
	if err != nil {
		return nil, err
	}
	if workers == 0 {
		workers = cfg.Inference.Workers
	}
	return inference.NewEngine(m, inference.Options{
		Workers:        workers,
		MaxIndividuals: cfg.Inference.MaxIndividuals,
		Logger:         log,
	}), nil
}

type cli struct {
	opts   *options
	cfg    *config.Config
	engine *inference.Engine
	stdout io.Writer
}

// infer loads the data file, runs the engine and prints the report
func (c *cli) infer(ctx context.Context) error {
	people, err := codec.LoadFile(c.opts.dataPath, c.opts.format)
	if err != nil {
		return err
	}

	if timeout := c.cfg.InferenceTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := c.engine.Infer(ctx, domain.NewFamilyGraph(people))
	if err != nil {
		return err
	}

	if c.opts.output == "json" {
		return codec.WriteJSON(c.stdout, res.Run("", time.Now().UTC()))
	}
	return codec.WriteText(c.stdout, res.Posteriors())
}
