// Command schemas writes the JSON schema of every tool parameter struct in a
// package. It documents the argument shapes the tool handlers decode into,
// so declaration drift shows up in review.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"go/token"
	"go/types"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// JSONSchema represents a basic JSON Schema structure
type JSONSchema struct {
	Type                 string                `json:"type,omitempty"`
	Description          string                `json:"description,omitempty"`
	Title                string                `json:"title,omitempty"`
	Properties           map[string]JSONSchema `json:"properties,omitempty"`
	Items                *JSONSchema           `json:"items,omitempty"`
	Required             []string              `json:"required,omitempty"`
	AdditionalProperties *JSONSchema           `json:"additionalProperties,omitempty"`
}

// paramsSuffix marks the structs a tool handler binds its arguments to.
const paramsSuffix = "Params"

func main() {
	dir := flag.String("dir", ".", "Package directory containing the tool parameter structs")
	out := flag.String("out", "cached_schemas/toolset.json", "Output file for the generated schemas")
	flag.Parse()

	pkg, err := loadPackage(*dir)
	if err != nil {
		log.Fatal(err)
	}
	schemas, err := toolsetSchemas(pkg.Types.Scope())
	if err != nil {
		log.Fatal(err)
	}
	if err := writeSchemas(*out, schemas); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote %d parameter schemas from %s to %s", len(schemas), pkg.PkgPath, *out)
}

func loadPackage(dir string) (*packages.Package, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedSyntax,
		Dir:  dir,
		Fset: token.NewFileSet(),
	}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to load package in %s: %w", dir, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no package found in %s", dir)
	}
	var loadErrors []string
	for _, e := range pkgs[0].Errors {
		loadErrors = append(loadErrors, e.Error())
	}
	if len(loadErrors) > 0 {
		return nil, fmt.Errorf("errors loading %s:\n%s", dir, strings.Join(loadErrors, "\n"))
	}
	return pkgs[0], nil
}

// toolsetSchemas returns the schema of every exported struct in scope whose
// name ends in Params, keyed by type name.
func toolsetSchemas(scope *types.Scope) (map[string]JSONSchema, error) {
	out := map[string]JSONSchema{}
	for _, name := range scope.Names() {
		obj, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || !obj.Exported() || !strings.HasSuffix(name, paramsSuffix) {
			continue
		}
		if _, isStruct := obj.Type().Underlying().(*types.Struct); !isStruct {
			continue
		}
		schema, err := generateSchemaForType(obj.Type())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = schema
	}
	return out, nil
}

func writeSchemas(path string, schemas map[string]JSONSchema) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	data, err := json.MarshalIndent(schemas, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schemas: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// generateSchemaForType maps a Go type to JSON schema. Named types carry
// their name as the title.
func generateSchemaForType(t types.Type) (JSONSchema, error) {
	var schema JSONSchema
	switch typ := t.Underlying().(type) {
	case *types.Basic:
		switch {
		case typ.Info()&types.IsBoolean != 0:
			schema.Type = "boolean"
		case typ.Info()&types.IsInteger != 0:
			schema.Type = "integer"
		case typ.Info()&types.IsFloat != 0:
			schema.Type = "number"
		case typ.Info()&types.IsString != 0:
			schema.Type = "string"
		default:
			return JSONSchema{}, fmt.Errorf("unsupported basic type %s", typ)
		}

	case *types.Slice, *types.Array:
		elem := typ.(interface{ Elem() types.Type }).Elem()
		items, err := generateSchemaForType(elem)
		if err != nil {
			return JSONSchema{}, fmt.Errorf("element of %s: %w", t, err)
		}
		schema = JSONSchema{Type: "array", Items: &items}

	case *types.Pointer:
		return generateSchemaForType(typ.Elem())

	case *types.Map:
		if b, ok := typ.Key().Underlying().(*types.Basic); !ok || b.Info()&types.IsString == 0 {
			return JSONSchema{}, fmt.Errorf("map key %s is not a string", typ.Key())
		}
		values, err := generateSchemaForType(typ.Elem())
		if err != nil {
			return JSONSchema{}, fmt.Errorf("value of %s: %w", t, err)
		}
		schema = JSONSchema{Type: "object", AdditionalProperties: &values}

	case *types.Interface:
		if !typ.Empty() {
			return JSONSchema{}, fmt.Errorf("unsupported interface %s", t)
		}
		schema.Description = "Any JSON value"

	case *types.Struct:
		schema = JSONSchema{Type: "object", Properties: map[string]JSONSchema{}, Required: []string{}}
		for i := 0; i < typ.NumFields(); i++ {
			field := typ.Field(i)
			if !field.Exported() {
				continue
			}
			tag := parseJsonTag(reflect.StructTag(typ.Tag(i)))
			if tag.Name == "-" {
				continue
			}
			name := field.Name()
			if tag.Name != "" {
				name = tag.Name
			}
			fieldSchema, err := generateSchemaForType(field.Type())
			if err != nil {
				return JSONSchema{}, fmt.Errorf("field %s: %w", field.Name(), err)
			}
			schema.Properties[name] = fieldSchema
			if _, isPointer := field.Type().(*types.Pointer); !isPointer && !tag.OmitEmpty {
				schema.Required = append(schema.Required, name)
			}
		}
		sort.Strings(schema.Required)

	default:
		return JSONSchema{}, fmt.Errorf("unsupported type %s", t)
	}

	if named, ok := t.(*types.Named); ok {
		schema.Title = named.Obj().Name()
	}
	return schema, nil
}

// jsonTagInfo holds parsed information from a `json:"..."` struct tag.
type jsonTagInfo struct {
	Name      string
	OmitEmpty bool
}

// parseJsonTag extracts relevant info from a struct field's JSON tag.
func parseJsonTag(tag reflect.StructTag) jsonTagInfo {
	jsonValue := tag.Get("json")
	if jsonValue == "" {
		return jsonTagInfo{}
	}
	parts := strings.Split(jsonValue, ",")
	info := jsonTagInfo{Name: parts[0]}
	for _, part := range parts[1:] {
		if strings.TrimSpace(part) == "omitempty" {
			info.OmitEmpty = true
		}
	}
	return info
}
