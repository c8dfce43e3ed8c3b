package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sugarme/floodseg/config"
)

// flag variables shared by every command
var (
	configPath string
	root       string
	split      string
	batchSize  int
	workers    int
	cuda       bool
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "flood",
		Short:        "index, filter and evaluate flood segmentation tiles",
		SilenceUsage: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML config file; flags override it")
	pf.StringVar(&root, "root", "", "dataset root directory")
	pf.StringVar(&split, "split", "", "train, validation or test")
	pf.IntVar(&batchSize, "batch", 0, "batch size")
	pf.IntVar(&workers, "workers", 0, "concurrent image decodes")
	pf.BoolVar(&cuda, "cuda", false, "run the model on CUDA if available")
	pf.BoolVarP(&verbose, "verbose", "v", false, "log every batch")

	rootCmd.AddCommand(indexCmd(), filterCmd(), evaluateCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, and applies the command line
// on top of it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(absPath(configPath)); err != nil {
			return cfg, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Root = root
	}
	if flags.Changed("split") {
		cfg.Split = split
	}
	if flags.Changed("batch") {
		cfg.BatchSize = batchSize
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("cuda") {
		cfg.Cuda = cuda
	}
	if cfg.Root != "" {
		cfg.Root = absPath(cfg.Root)
	}
	return cfg, cfg.Validate()
}

// newLogger writes JSON lines: errors to stderr, everything else to stdout.
// When stdout carries command output, every level goes to stderr.
func newLogger(stdoutIsData bool) *zap.Logger {
	info := os.Stdout
	if stdoutIsData {
		info = os.Stderr
	}
	return buildLogger(zapcore.Lock(info), zapcore.Lock(os.Stderr))
}

func buildLogger(info, errs zapcore.WriteSyncer) *zap.Logger {
	minLevel := zapcore.InfoLevel
	if verbose {
		minLevel = zapcore.DebugLevel
	}
	isErrorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
	isInfoLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= minLevel && lvl < zapcore.ErrorLevel
	})

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, errs, isErrorLevel),
		zapcore.NewCore(encoder, info, isInfoLevel),
	)
	return zap.New(core, zap.AddCaller())
}

// helper to get absolute file path
func absPath(p string) string {
	fullpath, err := filepath.Abs(p)
	if err != nil {
		log.Fatal(err)
	}
	return fullpath
}
