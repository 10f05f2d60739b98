package methodology

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
)

//go:embed defaults/*.yaml
var defaultsFS embed.FS

// DefaultRegistry returns a registry populated with the built-in
// methodologies shipped with the engine. Deployments can replace it with
// LoadDir for custom configuration.
func DefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	err := fs.WalkDir(defaultsFS, "defaults", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}
		data, err := defaultsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read embedded methodology %s: %w", path, err)
		}
		m, err := Parse(data)
		if err != nil {
			return fmt.Errorf("in embedded %s: %w", path, err)
		}
		return r.Add(m)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}
