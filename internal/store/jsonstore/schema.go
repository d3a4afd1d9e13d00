package jsonstore

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/tasks.v1.json
var schemaV1Source string

//go:embed schema/tasks.legacy.json
var schemaLegacySource string

var (
	v1Schema = sync.OnceValue(func() *jsonschema.Schema {
		return jsonschema.MustCompileString("tasks.v1.json", schemaV1Source)
	})
	legacySchema = sync.OnceValue(func() *jsonschema.Schema {
		return jsonschema.MustCompileString("tasks.legacy.json", schemaLegacySource)
	})
)

// validate checks a decoded JSON value and reports the first leaf failure
// as "path: message".
func validate(schema *jsonschema.Schema, v any) error {
	err := schema.Validate(v)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	leaf := firstLeaf(ve)
	path := pointerToPath(leaf.InstanceLocation)
	if path == "" {
		return errors.New(leaf.Message)
	}
	return fmt.Errorf("%s: %s", path, leaf.Message)
}

func firstLeaf(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}

// pointerToPath turns "/tasks/0/id" into "tasks[0].id".
func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}
	var b strings.Builder
	for i, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
		if isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
