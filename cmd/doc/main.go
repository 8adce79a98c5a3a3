// Command doc renders the querybench README from a template, filling in
// the CLI flags and the YAML configuration keys documented in pkg/config.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/ast"
	"go/doc"
	"go/parser"
	"go/token"
	"os"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/spf13/pflag"

	"github.com/justjake/querybench/pkg/config"
)

// FlagDoc describes a CLI flag.
type FlagDoc struct {
	Name        string
	Type        string
	Default     string
	Description string
	Common      bool
}

// KeyDoc describes a key of the YAML configuration file.
type KeyDoc struct {
	Key         string
	Type        string
	Description string
}

// TemplateData holds everything passed to the README template.
type TemplateData struct {
	EnvPrefix string
	Flags     []FlagDoc
	Keys      []KeyDoc
}

var (
	inputFile  = flag.String("in", "README.in.md", "input template file")
	outputFile = flag.String("out", "README.md", "output file")
	configPkg  = flag.String("config-pkg", "../../pkg/config", "path to config package")
)

func main() {
	flag.Parse()
	if err := generate(*inputFile, *outputFile, *configPkg); err != nil {
		fmt.Fprintf(os.Stderr, "doc: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s from %s\n", *outputFile, *inputFile)
}

func generate(in, out, pkgPath string) error {
	tmplContent, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	keys, err := configKeys(pkgPath)
	if err != nil {
		return err
	}

	flags := cliFlags()
	data := TemplateData{
		EnvPrefix: config.EnvPrefix,
		Flags:     flags,
		Keys:      describeKeys(keys, flags),
	}

	var buf bytes.Buffer
	if err := render(&buf, string(tmplContent), data); err != nil {
		return err
	}
	return os.WriteFile(out, buf.Bytes(), 0644)
}

func render(buf *bytes.Buffer, tmpl string, data TemplateData) error {
	t, err := template.New("readme").Funcs(templateFuncs()).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}
	if err := t.Execute(buf, data); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}
	return nil
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"oneline": func(s string) string {
			return strings.Join(strings.Fields(s), " ")
		},
		"envVar": func(name string) string {
			return config.EnvPrefix + "_" + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(config.FlagKey(name)))
		},
		"cell": func(s string) string {
			return strings.ReplaceAll(s, "|", `\|`)
		},
		"code": func(s string) string {
			if s == "" {
				return ""
			}
			return "`" + s + "`"
		},
	}
}

// cliFlags lists the flags in registration order, marking the ones every
// subcommand accepts.
func cliFlags() []FlagDoc {
	common := pflag.NewFlagSet("common", pflag.ContinueOnError)
	common.SortFlags = false
	config.RegisterCommonFlags(common, config.Default())

	all := pflag.NewFlagSet("all", pflag.ContinueOnError)
	all.SortFlags = false
	config.RegisterFlags(all, config.Default())

	var flags []FlagDoc
	all.VisitAll(func(f *pflag.Flag) {
		flags = append(flags, FlagDoc{
			Name:        f.Name,
			Type:        f.Value.Type(),
			Default:     strings.Trim(f.DefValue, "[]"),
			Description: f.Usage,
			Common:      common.Lookup(f.Name) != nil,
		})
	})
	return flags
}

// configKeys walks RunConfig and the structs nested in it, producing one
// entry per mapstructure key. Squashed structs contribute their keys at the
// top level.
func configKeys(pkgPath string) ([]KeyDoc, error) {
	fset := token.NewFileSet()
	pkgs, err := parser.ParseDir(fset, pkgPath, func(fi os.FileInfo) bool {
		return !strings.HasSuffix(fi.Name(), "_test.go")
	}, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse package: %w", err)
	}

	structs := map[string]*ast.StructType{}
	for _, pkg := range pkgs {
		for _, t := range doc.New(pkg, pkgPath, doc.AllDecls).Types {
			for _, spec := range t.Decl.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				if st, ok := ts.Type.(*ast.StructType); ok {
					structs[ts.Name.Name] = st
				}
			}
		}
	}
	if structs["RunConfig"] == nil {
		return nil, fmt.Errorf("RunConfig not found in %s", pkgPath)
	}

	var keys []KeyDoc
	var walk func(prefix, name string)
	walk = func(prefix, name string) {
		for _, field := range structs[name].Fields.List {
			key, squash := mapstructureKey(field)
			if key == "" && !squash {
				continue
			}
			typeName := formatType(field.Type)
			if nested, ok := structs[typeName]; ok && nested != nil {
				if squash {
					walk(prefix, typeName)
				} else {
					walk(prefix+key+".", typeName)
				}
				continue
			}
			keys = append(keys, KeyDoc{
				Key:         prefix + key,
				Type:        typeName,
				Description: fieldDescription(field),
			})
		}
	}
	walk("", "RunConfig")
	return keys, nil
}

// describeKeys borrows the flag usage for keys without a doc comment.
func describeKeys(keys []KeyDoc, flags []FlagDoc) []KeyDoc {
	usage := make(map[string]string, len(flags))
	for _, f := range flags {
		usage[config.FlagKey(f.Name)] = f.Description
	}
	for i := range keys {
		if keys[i].Description == "" {
			keys[i].Description = usage[keys[i].Key]
		}
	}
	return keys
}

func mapstructureKey(field *ast.Field) (key string, squash bool) {
	if field.Tag == nil {
		return "", false
	}
	raw, err := strconv.Unquote(field.Tag.Value)
	if err != nil {
		return "", false
	}
	tag := reflect.StructTag(raw).Get("mapstructure")
	name, opts, _ := strings.Cut(tag, ",")
	return name, opts == "squash"
}

// fieldDescription returns the field's doc comment without its leading
// Go identifier.
func fieldDescription(field *ast.Field) string {
	if field.Doc == nil {
		return ""
	}
	text := strings.Join(strings.Fields(field.Doc.Text()), " ")
	for _, name := range field.Names {
		if rest, ok := strings.CutPrefix(text, name.Name+" "); ok {
			text = strings.TrimPrefix(rest, "is ")
			if text != "" {
				text = strings.ToUpper(text[:1]) + text[1:]
			}
		}
	}
	return text
}

func formatType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.ArrayType:
		return "[]" + formatType(t.Elt)
	case *ast.StarExpr:
		return formatType(t.X)
	case *ast.SelectorExpr:
		return formatType(t.X) + "." + t.Sel.Name
	default:
		return fmt.Sprintf("%T", expr)
	}
}
