package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const modulePath = "altvote"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule lists what one service layer may import besides the standard
// library. "{svc}" expands to the importing service's own package path.
type layerRule struct {
	allow []string
}

var layerRules = map[string]layerRule{
	"domain": {
		allow: []string{"{svc}/domain"},
	},
	"ports": {
		allow: []string{"{svc}/domain", modulePath + "/contracts"},
	},
	"application": {
		allow: []string{"{svc}/application", "{svc}/domain", "{svc}/ports", modulePath + "/contracts"},
	},
}

func main() {
	violations := append(checkContexts("contexts"), checkContracts("contracts")...)
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File != violations[j].File {
			return violations[i].File < violations[j].File
		}
		return violations[i].Line < violations[j].Line
	})
	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

// checkContexts enforces contexts/<context>/<service>/<layer>/...: services
// never import each other, and inner layers follow layerRules.
func checkContexts(root string) []violation {
	var violations []violation
	parseErrs := walkSources(root, func(file string, line int, importPath string) {
		parts := strings.Split(file, "/")
		if len(parts) < 4 {
			return
		}
		service := modulePath + "/" + strings.Join(parts[:3], "/")

		if hasPrefix(importPath, modulePath+"/contexts") && !hasPrefix(importPath, service) {
			violations = append(violations, violation{file, line, importPath, "services must not import each other"})
		}

		rule, ok := layerRules[parts[3]]
		if !ok || isStdlib(importPath) {
			return
		}
		for _, allowed := range rule.allow {
			if hasPrefix(importPath, strings.ReplaceAll(allowed, "{svc}", service)) {
				return
			}
		}
		violations = append(violations, violation{file, line, importPath, parts[3] + " import is outside its allowlist"})
	})
	return append(violations, parseErrs...)
}

// checkContracts keeps wire contracts free of service and runtime code.
func checkContracts(root string) []violation {
	var violations []violation
	parseErrs := walkSources(root, func(file string, line int, importPath string) {
		if hasPrefix(importPath, modulePath+"/contexts") || hasPrefix(importPath, modulePath+"/internal") {
			violations = append(violations, violation{file, line, importPath, "contracts must stay dependency free"})
		}
	})
	return append(violations, parseErrs...)
}

// walkSources calls visit for every import of every non-test Go file below
// root and reports files that do not parse.
func walkSources(root string, visit func(file string, line int, importPath string)) []violation {
	var failed []violation
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		normalized := filepath.ToSlash(path)

		fset := token.NewFileSet()
		file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			failed = append(failed, violation{File: normalized, Line: 1, Rule: "file must parse"})
			return nil
		}
		for _, imp := range file.Imports {
			visit(normalized, fset.Position(imp.Pos()).Line, strings.Trim(imp.Path.Value, `"`))
		}
		return nil
	})
	return failed
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	if strings.HasPrefix(importPath, modulePath+"/") {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
