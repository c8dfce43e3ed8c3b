package config_test

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sugarme/floodseg/config"
	"github.com/sugarme/floodseg/dataset"
)

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "flood.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadKeepsDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
root: /data/sen1floods
split: test
batch_size: 16
report:
  csv_dir: out
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/data/sen1floods", cfg.Root)
	assert.Equal(t, dataset.Test, cfg.SplitName())
	assert.Equal(t, 16, cfg.BatchSize)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "radar", cfg.Variant)
	assert.Equal(t, "out", cfg.Report.CSVDir)
	assert.Equal(t, "floodseg", cfg.Report.Run)
	assert.Equal(t, "vv", cfg.FixedRename.PrimaryToken)

	n, err := cfg.NamingStrategy()
	require.NoError(t, err)
	assert.Equal(t, dataset.FixedRenameName, n.Name())
}

func TestLoadEventBranchOverride(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
root: /data/optical
variant: rgb
naming: event-branch
event_branch:
  primary_dir: rgb
  mask_dir: water_label
  ext: .png
  events:
    - marker: _pre_
      dir: pre
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	n, err := cfg.NamingStrategy()
	require.NoError(t, err)
	s, err := n.Derive("/data/optical", "/data/optical/pre/rgb/a_pre_1.png", dataset.Validation)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/data/optical", "pre", "water_label", "a_pre_1.png"), s.MaskPath)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	_, err := config.Load(writeConfig(t, "root: /data\nbatchsize: 3\n"))
	assert.Error(t, err)

	_, err = config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := config.Default()
	valid.Root = "/data"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"no root", func(c *config.Config) { c.Root = "" }},
		{"bad split", func(c *config.Config) { c.Split = "holdout" }},
		{"bad variant", func(c *config.Config) { c.Variant = "lidar" }},
		{"radar with event naming", func(c *config.Config) { c.Naming = dataset.EventBranchName }},
		{"bad naming", func(c *config.Config) { c.Variant, c.Naming = "rgb", "flat" }},
		{"zero batch", func(c *config.Config) { c.BatchSize = 0 }},
		{"negative workers", func(c *config.Config) { c.Workers = -1 }},
		{"empty union out of range", func(c *config.Config) { c.EmptyUnionIoU = 2 }},
		{"no events", func(c *config.Config) {
			c.Variant, c.Naming = "rgb", dataset.EventBranchName
			c.EventBranch.Events = nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			c.EventBranch.Events = append([]dataset.EventDir(nil), valid.EventBranch.Events...)
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
