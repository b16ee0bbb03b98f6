// Package catalog loads the menu from a JSON or YAML file, or from the menu
// compiled into the binary.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/satriahrh/pesan/domain/entities"
)

//go:embed data/catalog.json
var defaultCatalog []byte

// FileSource loads a catalog from path. An empty path selects the built-in menu.
type FileSource struct {
	path   string
	logger *zap.Logger
}

// NewFileSource creates a catalog source
func NewFileSource(path string, logger *zap.Logger) *FileSource {
	return &FileSource{path: path, logger: logger}
}

// Load implements repositories.CatalogSource
func (s *FileSource) Load(ctx context.Context) (*entities.Catalog, error) {
	if s.path == "" {
		s.logger.Info("Using built-in catalog")
		return Parse(defaultCatalog, ".json")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	catalog, err := Parse(data, filepath.Ext(s.path))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Catalog loaded",
		zap.String("path", s.path),
		zap.Int("categories", len(catalog.Categories)))
	return catalog, nil
}

// Default returns the built-in catalog
func Default() *entities.Catalog {
	catalog, err := Parse(defaultCatalog, ".json")
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return catalog
}

// Parse decodes and validates a catalog. YAML is accepted for .yaml and .yml
// extensions and converted to JSON first so both formats share one decoder.
func Parse(data []byte, ext string) (*entities.Catalog, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse catalog yaml: %w", err)
		}
		data = converted
	case ".json", "":
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", ext)
	}

	var catalog entities.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &catalog, nil
}
