package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/courseguide/pkg/catalog"
	"github.com/m-mizutani/courseguide/pkg/model"
	"github.com/m-mizutani/courseguide/pkg/utils/logging"
	"github.com/m-mizutani/gt"
)

const testYAML = `categories:
  - name: "Ventas"
    url: "https://example.com/ventas"
    courses:
      - title: "Negociación"
        url: "https://example.com/ventas/negociacion"
        duration: "2 días"
        price: "790 €"
        modality: "Presencial"
        target: "Comerciales"
      - title: "Prospección"
        url: "https://example.com/ventas/prospeccion"
  - name: "Finanzas"
    courses:
      - title: "Finanzas para no financieros"
        url: "https://example.com/finanzas/no-financieros"
        duration: "3 días"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	gt.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadYAML(t *testing.T) {
	cat, err := catalog.Load(writeFile(t, "catalog.yaml", testYAML))
	gt.NoError(t, err)

	gt.A(t, cat.Categories).Length(2)
	gt.Equal(t, cat.Categories[0].Name, "Ventas")
	gt.Equal(t, cat.Categories[0].URL, "https://example.com/ventas")
	gt.A(t, cat.Categories[0].Courses).Length(2)
	gt.Equal(t, cat.Categories[0].Courses[0].Price, "790 €")
	gt.Equal(t, cat.CourseCount(), 3)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "catalog.json", `{
  "categories": [
    {"name": "Ventas", "courses": [{"title": "Negociación", "url": "https://example.com/n", "duration": "2 días"}]}
  ]
}`)

	cat, err := catalog.Load(path)
	gt.NoError(t, err)
	gt.A(t, cat.Categories).Length(1)
	gt.Equal(t, cat.Categories[0].Courses[0].Duration, "2 días")
}

func TestLoadEmbedded(t *testing.T) {
	cat, err := catalog.Load("")
	gt.NoError(t, err)
	gt.A(t, cat.Categories).Longer(5)
	gt.True(t, cat.CourseCount() > 100)
}

func TestEmbeddedLandingPagesAreCategories(t *testing.T) {
	cat, err := catalog.Load("")
	gt.NoError(t, err)

	landing := map[string]bool{
		"FranklinCovey":            true,
		"Compras":                  true,
		"Marketing y Comunicación": true,
		"Formación y formadores":   true,
		"RSC y DEI":                true,
	}
	for _, category := range cat.Categories {
		for _, course := range category.Courses {
			gt.True(t, !landing[course.Title]).Describe("landing page listed as course: " + course.Title)
		}
		if landing[category.Name] {
			gt.A(t, category.Courses).Length(0)
			gt.True(t, category.URL != "")
		}
	}

	text := catalog.Render(cat)
	gt.S(t, text).Contains("### Compras\n- Categoría completa: https://www.cegos.es/formacion/compras\n")
	gt.S(t, text).NotContains("- Compras (")
}

func TestRenderCategoryWithoutCourses(t *testing.T) {
	cat, err := catalog.Load(writeFile(t, "catalog.yaml", `categories:
  - name: "Compras"
    url: "https://example.com/compras"
`))
	gt.NoError(t, err)
	gt.Equal(t, catalog.Render(cat), "### Compras\n- Categoría completa: https://example.com/compras\n")
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := catalog.Load(filepath.Join(t.TempDir(), "none.yaml"))
		gt.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := catalog.Load(writeFile(t, "bad.yaml", "categories: [:"))
		gt.Error(t, err)
	})

	t.Run("course without url", func(t *testing.T) {
		_, err := catalog.Load(writeFile(t, "bad.yaml", "categories:\n  - name: A\n    courses:\n      - title: B\n"))
		gt.Error(t, err)
		gt.S(t, err.Error()).Contains("invalid catalog")
	})

	t.Run("empty catalog", func(t *testing.T) {
		_, err := catalog.Load(writeFile(t, "empty.json", `{"categories": []}`))
		gt.Error(t, err)
	})
}

func TestRender(t *testing.T) {
	cat, err := catalog.Load(writeFile(t, "catalog.yaml", testYAML))
	gt.NoError(t, err)

	want := "### Ventas\n" +
		"- Negociación (https://example.com/ventas/negociacion) — 2 días — 790 € | Presencial\n" +
		"  Dirigido a: Comerciales\n" +
		"- Prospección (https://example.com/ventas/prospeccion)\n" +
		"- Categoría completa: https://example.com/ventas\n" +
		"\n" +
		"### Finanzas\n" +
		"- Finanzas para no financieros (https://example.com/finanzas/no-financieros) — 3 días\n"

	gt.Equal(t, catalog.Render(cat), want)
}

func TestRenderKeepsSourceOrder(t *testing.T) {
	cat := &model.Catalog{
		Categories: []*model.Category{
			{Name: "Z", Courses: []*model.Course{{Title: "z2", URL: "u"}, {Title: "z1", URL: "u"}}},
			{Name: "A", Courses: []*model.Course{{Title: "a1", URL: "u"}}},
		},
	}

	text := catalog.Render(cat)
	gt.True(t, strings.Index(text, "### Z") < strings.Index(text, "### A"))
	gt.True(t, strings.Index(text, "z2") < strings.Index(text, "z1"))
	gt.Equal(t, catalog.Render(cat), text)
}

func TestLoadText(t *testing.T) {
	ctx := logging.With(context.Background(), logging.Discard())

	t.Run("rendered catalog", func(t *testing.T) {
		text := catalog.LoadText(ctx, writeFile(t, "catalog.yaml", testYAML))
		gt.S(t, text).Contains("### Ventas")
		gt.S(t, text).NotContains(catalog.Placeholder)
	})

	t.Run("placeholder on failure", func(t *testing.T) {
		text := catalog.LoadText(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
		gt.Equal(t, text, catalog.Placeholder)
	})

	t.Run("embedded default", func(t *testing.T) {
		text := catalog.LoadText(ctx, "")
		gt.S(t, text).Contains("### Liderazgo y Gestión de Equipos")
	})
}
