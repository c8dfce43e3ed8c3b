package dataset

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Indexer discovers primary images below a root and builds the ordered
// sample table.
type Indexer struct {
	fs     afero.Fs
	naming Naming
}

// NewIndexer creates an Indexer reading through fs.
func NewIndexer(fs afero.Fs, naming Naming) *Indexer {
	return &Indexer{fs: fs, naming: naming}
}

// Index returns one Sample per primary image, sorted by path. Companion
// files are not checked for existence. A root without primary images
// yields an empty, non-nil slice.
func (ix *Indexer) Index(root string, split Split) ([]Sample, error) {
	paths, err := ix.primaries(root)
	if err != nil {
		return nil, err
	}

	samples := make([]Sample, 0, len(paths))
	for _, p := range paths {
		s, err := ix.naming.Derive(root, p, split)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func (ix *Indexer) primaries(root string) ([]string, error) {
	pattern := ix.naming.Pattern()
	var paths []string
	err := afero.Walk(ix.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root && os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		ok, err := zglob.Match(pattern, filepath.ToSlash(rel))
		if err != nil {
			return errors.Wrapf(err, "bad pattern %q", pattern)
		}
		if ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", root)
	}

	sort.Strings(paths)
	return paths, nil
}
