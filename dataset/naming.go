package dataset

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Naming derives the companion paths of a sample from its primary image.
type Naming interface {
	// Name identifies the convention in configuration files.
	Name() string
	// Pattern is the glob, relative to the root, that selects primary images.
	Pattern() string
	// Derive builds the Sample for one primary image.
	Derive(root, primary string, split Split) (Sample, error)
}

const (
	FixedRenameName = "fixed-rename"
	EventBranchName = "event-branch"
)

// NamingByName returns the default strategy registered under name.
func NamingByName(name string) (Naming, error) {
	switch name {
	case FixedRenameName:
		return DefaultFixedRename(), nil
	case EventBranchName:
		return DefaultEventBranch(), nil
	}
	return nil, errors.Errorf("unknown naming convention %q", name)
}

// FixedRename is the dual-polarization layout:
//
//	<root>/<region>_<date>/tiles/vv/<region>_<date>_..._vv.png
//	<root>/<region>_<date>/tiles/vh/<region>_<date>_..._vh.png
//	<root>/<region>_<date>/tiles/flood_label/<region>_<date>_....png
//
// The secondary name swaps the channel token, the mask name drops it.
type FixedRename struct {
	Tiles          string `yaml:"tiles"`
	PrimaryToken   string `yaml:"primary_token"`
	SecondaryToken string `yaml:"secondary_token"`
	MaskDir        string `yaml:"mask_dir"`
	WaterBodyDir   string `yaml:"water_body_dir"`
	Ext            string `yaml:"ext"`
}

// DefaultFixedRename returns the vv/vh flood_label convention.
func DefaultFixedRename() *FixedRename {
	return &FixedRename{
		Tiles:          "tiles",
		PrimaryToken:   "vv",
		SecondaryToken: "vh",
		MaskDir:        "flood_label",
		WaterBodyDir:   "water_body_label",
		Ext:            ".png",
	}
}

func (n *FixedRename) Name() string { return FixedRenameName }

func (n *FixedRename) Pattern() string {
	return "**/" + n.PrimaryToken + "/*" + n.Ext
}

func (n *FixedRename) Derive(root, primary string, split Split) (Sample, error) {
	name := filepath.Base(primary)
	tokens := strings.Split(name, "_")
	if len(tokens) < 2 {
		return Sample{}, errors.Wrapf(ErrNaming, "%q has no region_date prefix", name)
	}
	regionDate := tokens[0] + "_" + tokens[1]
	dir := filepath.Join(root, regionDate, n.Tiles)

	// mask and water body tiles share the primary name minus the channel token
	labelName := strings.ReplaceAll(name, "_"+n.PrimaryToken, "")

	s := Sample{
		Key:           strings.TrimSuffix(labelName, filepath.Ext(labelName)),
		Region:        tokens[0],
		PrimaryPath:   primary,
		SecondaryPath: filepath.Join(dir, n.SecondaryToken, strings.ReplaceAll(name, n.PrimaryToken, n.SecondaryToken)),
		MaskPath:      Missing,
	}
	if split.HasLabels() {
		s.MaskPath = filepath.Join(dir, n.MaskDir, labelName)
	}
	if n.WaterBodyDir != "" {
		s.WaterBodyPath = filepath.Join(dir, n.WaterBodyDir, labelName)
	}
	return s, nil
}

// EventDir maps a file name marker to the folder holding its masks.
type EventDir struct {
	Marker string `yaml:"marker"`
	Dir    string `yaml:"dir"`
}

// EventBranch is the optical layout where masks of pre-event and event
// tiles live in different folders, chosen by a marker in the file name:
//
//	<root>/**/rgb/<name>_1_<...>.png -> <root>/before_flood/water_label/<name>
//	<root>/**/rgb/<name>_2_<...>.png -> <root>/flood/water_label/<name>
type EventBranch struct {
	PrimaryDir string     `yaml:"primary_dir"`
	MaskDir    string     `yaml:"mask_dir"`
	Events     []EventDir `yaml:"events"`
	Ext        string     `yaml:"ext"`
}

// DefaultEventBranch returns the before_flood / flood convention.
func DefaultEventBranch() *EventBranch {
	return &EventBranch{
		PrimaryDir: "rgb",
		MaskDir:    "water_label",
		Events: []EventDir{
			{Marker: "_1_", Dir: "before_flood"},
			{Marker: "_2_", Dir: "flood"},
		},
		Ext: ".png",
	}
}

func (n *EventBranch) Name() string { return EventBranchName }

func (n *EventBranch) Pattern() string {
	return "**/" + n.PrimaryDir + "/*" + n.Ext
}

func (n *EventBranch) Derive(root, primary string, split Split) (Sample, error) {
	name := filepath.Base(primary)
	s := Sample{
		Key:         strings.TrimSuffix(name, filepath.Ext(name)),
		Region:      strings.Split(name, "_")[0],
		PrimaryPath: primary,
		MaskPath:    Missing,
	}
	if !split.HasLabels() {
		return s, nil
	}

	var matched []EventDir
	for _, ev := range n.Events {
		if strings.Contains(name, ev.Marker) {
			matched = append(matched, ev)
		}
	}
	switch len(matched) {
	case 0:
		return Sample{}, errors.Wrapf(ErrNaming, "%q carries no event marker", name)
	case 1:
		s.MaskPath = filepath.Join(root, matched[0].Dir, n.MaskDir, name)
		return s, nil
	}
	return Sample{}, errors.Wrapf(ErrNaming, "%q carries %d event markers", name, len(matched))
}
