package main

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sugarme/floodseg/config"
	"github.com/sugarme/floodseg/dataset"
	"github.com/sugarme/floodseg/eval"
	"github.com/sugarme/floodseg/metric"
	"github.com/sugarme/floodseg/report"
	"github.com/sugarme/floodseg/torch"
)

type estimateRow struct {
	Key             string  `csv:"key"`
	PrimaryPath     string  `csv:"primary_path"`
	FloodPercentage float64 `csv:"flood_percentage"`
}

func evaluateCmd() *cobra.Command {
	var (
		modelPath string
		manifest  string
		out       string
		progress  bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "run a TorchScript model over a split and report segmentation metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if modelPath != "" {
				cfg.Model = modelPath
			}
			if cfg.Model == "" {
				return fmt.Errorf("no model: set --model or model in the config file")
			}
			// estimates go to stdout unless --out names a file
			predictToStdout := !cfg.SplitName().HasLabels() && out == ""
			logger := newLogger(predictToStdout)
			defer logger.Sync()

			fs := afero.NewOsFs()
			samples, err := loadSamples(cmd, fs, cfg, manifest, logger)
			if err != nil {
				return err
			}

			opts := dataset.Options{Split: cfg.SplitName(), TileSize: cfg.TileSize}
			if cfg.Augment {
				opts.Transform = dataset.NewFlipRotate(cfg.Seed)
			}
			src, err := dataset.NewSource(cfg.Variant, fs, samples, opts)
			if err != nil {
				return err
			}

			model, err := torch.Load(absPath(cfg.Model), cfg.Cuda)
			if err != nil {
				logger.Error("model", zap.Error(err))
				return err
			}
			defer model.Close()
			logger.Info("model loaded", zap.String("path", cfg.Model), zap.String("device", fmt.Sprintf("%v", model.Device())))

			evalOpts := eval.Options{
				Source:    src,
				Model:     model,
				BatchSize: cfg.BatchSize,
				Workers:   cfg.Workers,
				Engine:    metric.Engine{EmptyUnion: cfg.EmptyUnionIoU},
				Logger:    logger,
				Progress:  progress,
				Split:     cfg.SplitName(),
			}

			if !cfg.SplitName().HasLabels() {
				return predict(cmd, evalOpts, samples, out)
			}

			rec, err := openRecorders(cfg.Report)
			if err != nil {
				return err
			}
			if rec != nil {
				defer rec.Close()
				evalOpts.Recorder = rec
			}

			sum, err := eval.Run(cmd.Context(), evalOpts)
			if err != nil {
				logger.Error("evaluation failed", zap.Error(err))
				return err
			}
			printSummary(sum)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&modelPath, "model", "m", "", "TorchScript model file")
	f.StringVar(&manifest, "manifest", "", "read samples from a CSV manifest instead of indexing the root")
	f.StringVarP(&out, "out", "o", "", "CSV file for flood estimates of an unlabelled split (default stdout)")
	f.BoolVar(&progress, "progress", false, "show a progress bar")
	return cmd
}

func loadSamples(cmd *cobra.Command, fs afero.Fs, cfg config.Config, manifest string, logger *zap.Logger) ([]dataset.Sample, error) {
	var (
		samples []dataset.Sample
		err     error
	)
	if manifest != "" {
		f, err := os.Open(absPath(manifest))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if samples, err = dataset.ReadManifest(f); err != nil {
			return nil, err
		}
		if err := dataset.RequireSamples(samples, manifest); err != nil {
			return nil, err
		}
		logger.Info("manifest loaded", zap.String("path", manifest), zap.Int("samples", len(samples)))
	} else if samples, err = indexSamples(fs, cfg); err != nil {
		logger.Error("index failed", zap.String("root", cfg.Root), zap.Error(err))
		return nil, err
	}

	if !cfg.Filter {
		return samples, nil
	}
	return filterSamples(cmd.Context(), fs, cfg, samples, logger)
}

func openRecorders(cfg config.Report) (report.Recorder, error) {
	var recs []report.Recorder
	if cfg.CSVDir != "" {
		c, err := report.CreateCSV(absPath(cfg.CSVDir))
		if err != nil {
			return nil, err
		}
		recs = append(recs, c)
	}
	if cfg.SQLite != "" {
		s, err := report.OpenStore(absPath(cfg.SQLite), cfg.Run)
		if err != nil {
			report.Multi(recs...).Close()
			return nil, err
		}
		recs = append(recs, s)
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return report.Multi(recs...), nil
}

func predict(cmd *cobra.Command, opts eval.Options, samples []dataset.Sample, out string) error {
	est, err := eval.Predict(cmd.Context(), opts)
	if err != nil {
		return err
	}
	if out == "" {
		return writeEstimates(os.Stdout, est, samples)
	}
	f, err := os.Create(absPath(out))
	if err != nil {
		return err
	}
	if err := writeEstimates(f, est, samples); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeEstimates writes one CSV row per estimate, keyed by its sample.
func writeEstimates(w io.Writer, est []eval.Estimate, samples []dataset.Sample) error {
	rows := make([]estimateRow, len(est))
	for i, e := range est {
		s := samples[e.Index]
		rows[i] = estimateRow{Key: s.Key, PrimaryPath: s.PrimaryPath, FloodPercentage: e.FloodPercentage}
	}
	return gocsv.Marshal(&rows, w)
}

func printSummary(s metric.Summary) {
	fmt.Printf("Batches: %d\tSamples: %d\n", s.Batches, s.Samples)
	fmt.Printf("mIoU: %.4f\tIoU background: %.4f\tIoU flood: %.4f (%d tiles)\n",
		s.MeanIoU, s.IoUBackground, s.IoUFlood.Value(), s.IoUFlood.Count)
	fmt.Printf("Accuracy: %.4f\tDice: %.4f\tBalanced accuracy: %.4f\n", s.PixelAccuracy, s.Dice, s.BalancedAccuracy)
	fmt.Printf("Precision: %.4f\tRecall: %.4f\tF1: %.4f\n", s.Precision, s.Recall, s.F1)
	fmt.Printf("Flood: %.2f%%\n", s.FloodPercentage)
}
