package agent

import (
	"reflect"
	"strings"

	"github.com/vango-go/improv-battle/pkg/types"
)

// GenerateJSONSchema generates a JSON Schema from a Go type.
// It supports struct tags:
//   - json:"name"        - field name in JSON
//   - desc:"description" - field description
//   - enum:"a,b,c"       - enum values
func GenerateJSONSchema(t reflect.Type) *types.JSONSchema {
	if t == nil {
		return &types.JSONSchema{}
	}
	return generateSchemaFromType(t)
}

func generateSchemaFromType(t reflect.Type) *types.JSONSchema {
	// Dereference pointer
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Struct:
		return generateObjectSchema(t)
	case reflect.Slice, reflect.Array:
		items := generateSchemaFromType(t.Elem())
		return &types.JSONSchema{
			Type:  "array",
			Items: items,
		}
	case reflect.String:
		return &types.JSONSchema{Type: "string"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &types.JSONSchema{Type: "integer"}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &types.JSONSchema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &types.JSONSchema{Type: "number"}
	case reflect.Bool:
		return &types.JSONSchema{Type: "boolean"}
	case reflect.Map:
		return &types.JSONSchema{Type: "object"}
	case reflect.Interface:
		// No type constraint for interface{}
		return &types.JSONSchema{}
	default:
		return &types.JSONSchema{Type: "string"} // Fallback
	}
}

func generateObjectSchema(t reflect.Type) *types.JSONSchema {
	schema := &types.JSONSchema{
		Type:       "object",
		Properties: make(map[string]types.JSONSchema),
		Required:   []string{},
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		jsonName := field.Name
		omitempty := false
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				jsonName = parts[0]
			}
			for _, part := range parts[1:] {
				if part == "omitempty" {
					omitempty = true
					break
				}
			}
		}

		fieldSchema := generateSchemaFromType(field.Type)

		if desc := field.Tag.Get("desc"); desc != "" {
			fieldSchema.Description = desc
		}

		if enum := field.Tag.Get("enum"); enum != "" {
			fieldSchema.Enum = parseEnumTag(enum)
		}

		schema.Properties[jsonName] = *fieldSchema

		// Required unless pointer or omitempty
		isRequired := true
		if field.Type.Kind() == reflect.Ptr {
			isRequired = false
		}
		if omitempty {
			isRequired = false
		}
		if isRequired {
			schema.Required = append(schema.Required, jsonName)
		}
	}

	return schema
}

func parseEnumTag(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
