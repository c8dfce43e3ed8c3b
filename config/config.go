package config

import (
	"io/ioutil"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/sugarme/floodseg/dataset"
)

// Report selects the evaluation sinks. Empty fields disable a sink.
type Report struct {
	CSVDir string `yaml:"csv_dir"`
	SQLite string `yaml:"sqlite"`
	Run    string `yaml:"run"`
}

// Config describes one dataset and how to evaluate it.
type Config struct {
	Root    string `yaml:"root"`
	Split   string `yaml:"split"`
	Variant string `yaml:"variant"` // radar or rgb
	Naming  string `yaml:"naming"`  // fixed-rename or event-branch

	BatchSize int   `yaml:"batch_size"`
	Workers   int   `yaml:"workers"`
	TileSize  int   `yaml:"tile_size"`
	Augment   bool  `yaml:"augment"`
	Seed      int64 `yaml:"seed"`
	// Filter drops degenerate tiles before evaluation.
	Filter bool `yaml:"filter"`
	// EmptyUnionIoU scores a class absent from both prediction and mask.
	EmptyUnionIoU float64 `yaml:"empty_union_iou"`

	Model string `yaml:"model"` // TorchScript file
	Cuda  bool   `yaml:"cuda"`

	Report Report `yaml:"report"`

	FixedRename dataset.FixedRename `yaml:"fixed_rename"`
	EventBranch dataset.EventBranch `yaml:"event_branch"`
}

// Default returns the configuration of the radar dataset.
func Default() Config {
	return Config{
		Split:       string(dataset.Validation),
		Variant:     "radar",
		Naming:      dataset.FixedRenameName,
		BatchSize:   8,
		Workers:     4,
		Filter:      true,
		Report:      Report{Run: "floodseg"},
		FixedRename: *dataset.DefaultFixedRename(),
		EventBranch: *dataset.DefaultEventBranch(),
	}
}

// Load reads a YAML file over Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

// Validate checks the fields every command relies on.
func (c Config) Validate() error {
	if c.Root == "" {
		return errors.New("config: root is required")
	}
	if _, err := dataset.ParseSplit(c.Split); err != nil {
		return errors.Wrap(err, "config")
	}
	switch c.Variant {
	case "radar", "rgb":
	default:
		return errors.Errorf("config: unknown variant %q", c.Variant)
	}
	if c.Variant == "radar" && c.Naming != dataset.FixedRenameName {
		return errors.Errorf("config: variant radar needs naming %q", dataset.FixedRenameName)
	}
	if _, err := c.NamingStrategy(); err != nil {
		return errors.Wrap(err, "config")
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("config: batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Workers < 0 || c.TileSize < 0 {
		return errors.New("config: workers and tile_size must not be negative")
	}
	if c.EmptyUnionIoU < 0 || c.EmptyUnionIoU > 1 {
		return errors.Errorf("config: empty_union_iou must lie in [0,1], got %v", c.EmptyUnionIoU)
	}
	return nil
}

// SplitName returns the parsed split. Call Validate first.
func (c Config) SplitName() dataset.Split {
	sp, _ := dataset.ParseSplit(c.Split)
	return sp
}

// NamingStrategy returns the configured naming convention.
func (c Config) NamingStrategy() (dataset.Naming, error) {
	switch c.Naming {
	case dataset.FixedRenameName:
		n := c.FixedRename
		if n.PrimaryToken == "" || n.SecondaryToken == "" {
			return nil, errors.New("fixed_rename needs primary and secondary tokens")
		}
		return &n, nil
	case dataset.EventBranchName:
		n := c.EventBranch
		if len(n.Events) == 0 {
			return nil, errors.New("event_branch needs at least one event")
		}
		return &n, nil
	}
	return nil, errors.Errorf("unknown naming convention %q", c.Naming)
}
