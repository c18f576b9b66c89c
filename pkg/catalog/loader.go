package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/courseguide/pkg/model"
	"github.com/m-mizutani/courseguide/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

//go:embed data/cegos.yaml
var defaultCatalog []byte

// Placeholder replaces the catalog text when the source can not be loaded.
// The service keeps answering, only without course references.
const Placeholder = "(El catálogo de cursos no está disponible en este momento. " +
	"No recomiendes cursos concretos ni enlaces; indica al usuario que consulte https://www.cegos.es/formacion.)"

// Load reads a catalog from path. JSON is used for files ending in .json,
// YAML for anything else. An empty path selects the embedded catalog.
func Load(path string) (*model.Catalog, error) {
	data := defaultCatalog
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read catalog file", goerr.V("path", path))
		}
		data = raw
	}

	return parse(data, strings.EqualFold(filepath.Ext(path), ".json"))
}

func parse(data []byte, isJSON bool) (*model.Catalog, error) {
	var cat model.Catalog
	if isJSON {
		if err := json.Unmarshal(data, &cat); err != nil {
			return nil, goerr.Wrap(err, "failed to parse catalog JSON")
		}
	} else {
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return nil, goerr.Wrap(err, "failed to parse catalog YAML")
		}
	}

	if err := cat.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid catalog")
	}

	return &cat, nil
}

// Render serializes the catalog for prompt injection, keeping source order.
func Render(cat *model.Catalog) string {
	var sb strings.Builder

	for i, category := range cat.Categories {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("### " + category.Name + "\n")

		for _, course := range category.Courses {
			sb.WriteString("- " + course.Title + " (" + course.URL + ")")
			if course.Duration != "" {
				sb.WriteString(" — " + course.Duration)
			}
			if course.Price != "" {
				sb.WriteString(" — " + course.Price)
			}
			if course.Modality != "" {
				sb.WriteString(" | " + course.Modality)
			}
			sb.WriteString("\n")

			if course.Target != "" {
				sb.WriteString("  Dirigido a: " + course.Target + "\n")
			}
		}

		if category.URL != "" {
			sb.WriteString("- Categoría completa: " + category.URL + "\n")
		}
	}

	return sb.String()
}

// LoadText loads and renders the catalog. Failures are logged and replaced by
// Placeholder so that a broken catalog degrades answers instead of stopping
// the service.
func LoadText(ctx context.Context, path string) string {
	cat, err := Load(path)
	if err != nil {
		logging.From(ctx).Error("failed to load catalog, using placeholder", "error", err, "path", path)
		return Placeholder
	}

	logging.From(ctx).Info("catalog loaded",
		"path", path,
		"categories", len(cat.Categories),
		"courses", cat.CourseCount(),
	)
	return Render(cat)
}
