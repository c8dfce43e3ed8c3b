package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sugarme/floodseg/config"
	"github.com/sugarme/floodseg/dataset"
)

func indexCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "list the samples of a split and optionally write them as a CSV manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(false)
			defer logger.Sync()

			samples, err := indexSamples(afero.NewOsFs(), cfg)
			if err != nil {
				logger.Error("index failed", zap.String("root", cfg.Root), zap.Error(err))
				return err
			}
			logger.Info("indexed", zap.String("root", cfg.Root), zap.String("split", cfg.Split), zap.Int("samples", len(samples)))

			if out == "" {
				fmt.Printf("Samples: %d\n", len(samples))
				return nil
			}
			return writeManifest(absPath(out), samples)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "manifest CSV to write")
	return cmd
}

func filterCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "drop degenerate tiles and write the remaining samples as a CSV manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(false)
			defer logger.Sync()

			fs := afero.NewOsFs()
			samples, err := indexSamples(fs, cfg)
			if err != nil {
				logger.Error("index failed", zap.String("root", cfg.Root), zap.Error(err))
				return err
			}
			kept, err := filterSamples(cmd.Context(), fs, cfg, samples, logger)
			if err != nil {
				return err
			}

			fmt.Printf("Samples: %d\tDegenerate: %d\tKept: %d\n", len(samples), len(samples)-len(kept), len(kept))
			if out == "" {
				return nil
			}
			return writeManifest(absPath(out), kept)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "manifest CSV to write")
	return cmd
}

func indexSamples(fs afero.Fs, cfg config.Config) ([]dataset.Sample, error) {
	naming, err := cfg.NamingStrategy()
	if err != nil {
		return nil, err
	}
	samples, err := dataset.NewIndexer(fs, naming).Index(cfg.Root, cfg.SplitName())
	if err != nil {
		return nil, err
	}
	if err := dataset.RequireSamples(samples, cfg.Root); err != nil {
		return nil, err
	}
	return samples, nil
}

func filterSamples(ctx context.Context, fs afero.Fs, cfg config.Config, samples []dataset.Sample, logger *zap.Logger) ([]dataset.Sample, error) {
	bad, err := dataset.NewValidator(fs, cfg.Workers).Degenerate(ctx, samples)
	if err != nil {
		logger.Error("validation failed", zap.Error(err))
		return nil, err
	}
	for _, i := range bad {
		logger.Debug("degenerate tile", zap.String("key", samples[i].Key), zap.String("path", samples[i].PrimaryPath))
	}
	kept := dataset.Exclude(samples, bad)
	logger.Info("filtered", zap.Int("samples", len(samples)), zap.Int("degenerate", len(bad)))
	if err := dataset.RequireSamples(kept, cfg.Root); err != nil {
		return nil, err
	}
	return kept, nil
}

func writeManifest(path string, samples []dataset.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.WriteManifest(f, samples); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
