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

const modulePath = "rewardledger"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// Boundary rules:
//   - a context never imports another context
//   - domain imports stdlib and its own domain only
//   - application imports stdlib, its own application/domain/ports and contracts
//   - ports never import adapters or application code
//   - shared platform packages never import contexts; only the http server
//     and the composition root may
func main() {
	root := "."
	if len(os.Args) > 1 {
		root = os.Args[1]
	}
	violations := collectViolations(root)
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation

	for _, dir := range []string{"contexts", filepath.Join("internal", "platform")} {
		_ = filepath.WalkDir(filepath.Join(root, dir), func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			violations = append(violations, validateFile(path, filepath.ToSlash(rel))...)
			return nil
		})
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File == violations[j].File {
			if violations[i].Line == violations[j].Line {
				return violations[i].Import < violations[j].Import
			}
			return violations[i].Line < violations[j].Line
		}
		return violations[i].File < violations[j].File
	})
	return violations
}

func validateFile(path string, rel string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: rel, Line: 1, Rule: "file must parse"}}
	}

	var check func(importPath string) []string
	parts := strings.Split(rel, "/")
	switch {
	case parts[0] == "contexts" && len(parts) >= 4:
		check = contextRules(parts[1], parts[2], parts[3])
	case parts[0] == "internal" && len(parts) >= 3:
		check = platformRules(parts[2])
	default:
		return nil
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line
		for _, rule := range check(importPath) {
			violations = append(violations, violation{
				File:   rel,
				Line:   line,
				Import: importPath,
				Rule:   rule,
			})
		}
	}
	return violations
}

func contextRules(area string, service string, layer string) func(string) []string {
	servicePrefix := fmt.Sprintf("%s/contexts/%s/%s", modulePath, area, service)
	return func(importPath string) []string {
		var rules []string
		if hasPrefix(importPath, modulePath+"/contexts") && !hasPrefix(importPath, servicePrefix) {
			rules = append(rules, "cross-context imports are forbidden")
		}
		if hasPrefix(importPath, modulePath+"/internal") {
			rules = append(rules, layer+" must not import runtime infrastructure")
		}

		var allowed []string
		switch layer {
		case "domain":
			allowed = []string{servicePrefix + "/domain"}
		case "application":
			allowed = []string{
				servicePrefix + "/application",
				servicePrefix + "/domain",
				servicePrefix + "/ports",
				modulePath + "/contracts",
			}
		case "ports":
			if strings.Contains(importPath, "/adapters/") || strings.Contains(importPath, "/application") {
				rules = append(rules, "ports must not import adapters or application")
			}
			return rules
		default:
			return rules
		}
		if !isStdlib(importPath) && !isAllowed(importPath, allowed) {
			rules = append(rules, layer+" import is outside explicit allowlist")
		}
		return rules
	}
}

func platformRules(pkg string) func(string) []string {
	return func(importPath string) []string {
		if pkg == "httpserver" || !hasPrefix(importPath, modulePath+"/contexts") {
			return nil
		}
		return []string{"platform packages must not import contexts"}
	}
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, allowedPrefixes []string) bool {
	for _, p := range allowedPrefixes {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func isStdlib(importPath string) bool {
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
