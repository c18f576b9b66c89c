package prompt

import (
	_ "embed"
	"os"
	"strings"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
)

//go:embed instruction.md
var defaultTemplate string

// CatalogHeading separates the instruction template from the catalog text.
const CatalogHeading = "## Catálogo de Cursos de Cegos España — URLs VERIFICADAS"

// DefaultTemplate returns the built-in persona and answering rules.
func DefaultTemplate() string {
	return defaultTemplate
}

// LoadTemplate reads a template file. An empty path returns DefaultTemplate.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return defaultTemplate, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", goerr.Wrap(err, "failed to read instruction template", goerr.V("path", path))
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", goerr.New("instruction template is empty", goerr.V("path", path))
	}

	return string(data), nil
}

// Build concatenates the template and the rendered catalog into the system
// instruction sent once per model session.
func Build(template, catalogText string) string {
	return strings.TrimRight(template, "\n") + "\n\n" +
		CatalogHeading + "\n\n" +
		strings.TrimRight(catalogText, "\n") + "\n"
}

type built struct {
	catalog     string
	instruction string
}

// Instruction caches the built system instruction. It is rebuilt only when
// Update receives a different catalog text.
type Instruction struct {
	template string
	current  atomic.Pointer[built]
}

func NewInstruction(template, catalogText string) *Instruction {
	x := &Instruction{template: template}
	x.current.Store(&built{
		catalog:     catalogText,
		instruction: Build(template, catalogText),
	})
	return x
}

// String returns the current system instruction
func (x *Instruction) String() string {
	return x.current.Load().instruction
}

// Update rebuilds the instruction for a new catalog text. It reports whether
// the instruction changed.
func (x *Instruction) Update(catalogText string) bool {
	if x.current.Load().catalog == catalogText {
		return false
	}

	x.current.Store(&built{
		catalog:     catalogText,
		instruction: Build(x.template, catalogText),
	})
	return true
}
