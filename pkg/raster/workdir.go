package raster

import(
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// A WorkDir is a scratch directory for intermediate rasters (padded
// scenes, tiles, pyramid levels). Everything in it is temporary.
type WorkDir struct {
	Root string
}

// CheckWritable makes sure `dir` exists and that we can create files in it.
func CheckWritable(dir string) error {
	if dir == "" {
		return fmt.Errorf("no working directory given")
	}
	if info, err := os.Stat(dir); err != nil {
		return fmt.Errorf("workdir '%s': %v", dir, err)
	} else if !info.IsDir() {
		return fmt.Errorf("workdir '%s' is not a directory", dir)
	}

	f, err := ioutil.TempFile(dir, ".writable-*")
	if err != nil {
		return fmt.Errorf("workdir '%s' not writable: %v", dir, err)
	}
	f.Close()
	return os.Remove(f.Name())
}

// NewWorkDir creates a uniquely named run directory under `parent`.
func NewWorkDir(parent string) (*WorkDir, error) {
	if err := CheckWritable(parent); err != nil {
		return nil, err
	}
	root := filepath.Join(parent, "tiepoint-"+uuid.New().String())
	if err := os.Mkdir(root, 0755); err != nil {
		return nil, fmt.Errorf("mkdir '%s': %v", root, err)
	}
	return &WorkDir{Root: root}, nil
}

func (w *WorkDir)Path(name string) string {
	return filepath.Join(w.Root, name)
}

// Sub creates a nested scratch dir, for stuff that gets thrown away as a unit.
func (w *WorkDir)Sub(name string) (*WorkDir, error) {
	root := w.Path(name)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("mkdir '%s': %v", root, err)
	}
	return &WorkDir{Root: root}, nil
}

// Cleanup removes the directory and everything in it.
func (w *WorkDir)Cleanup() error {
	if err := os.RemoveAll(w.Root); err != nil {
		return fmt.Errorf("cleanup '%s': %v", w.Root, err)
	}
	return nil
}

// Files lists what is currently in the directory, for leak checks.
func (w *WorkDir)Files() ([]string, error) {
	entries, err := os.ReadDir(w.Root)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
