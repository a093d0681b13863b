package parser

import (
	"os"
	"path/filepath"

	"github.com/ardar-lang/ardar/ast"
)

// ParseProgramFile resolves path relative to the directory of fromPath (the
// importing source file) and parses it, implementing the compiler's
// `import` interface.
func ParseProgramFile(fromPath, path string) (*ast.Program, error) {
	resolved := path
	if !filepath.IsAbs(path) {
		resolved = filepath.Join(filepath.Dir(fromPath), path)
	}
	if filepath.Ext(resolved) == "" {
		resolved += ".ardar"
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, err
	}
	return ParseProgram(string(data))
}
