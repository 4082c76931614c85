package model

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const columnsSchema = `{
  "type": "array",
  "minItems": 1,
  "uniqueItems": true,
  "items": {"type": "string", "minLength": 1}
}`

const scalerSchema = `{
  "type": "object",
  "required": ["kind", "mean", "scale"],
  "properties": {
    "kind": {"const": "standard"},
    "mean": {"type": "array", "items": {"type": "number"}},
    "scale": {"type": "array", "items": {"type": "number"}}
  }
}`

const modelSchema = `{
  "type": "object",
  "required": ["kind"],
  "oneOf": [
    {
      "required": ["coefficients", "intercept"],
      "properties": {
        "kind": {"const": "logistic"},
        "coefficients": {"type": "array", "minItems": 1, "items": {"type": "number"}},
        "intercept": {"type": "number"}
      }
    },
    {
      "required": ["trees"],
      "properties": {
        "kind": {"const": "tree_ensemble"},
        "base_score": {"type": "number"},
        "trees": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["nodes"],
            "properties": {
              "nodes": {
                "type": "array",
                "minItems": 1,
                "items": {
                  "type": "object",
                  "properties": {
                    "leaf": {"type": "boolean"},
                    "feature": {"type": "integer", "minimum": 0},
                    "threshold": {"type": "number"},
                    "left": {"type": "integer"},
                    "right": {"type": "integer"},
                    "value": {"type": "number"}
                  }
                }
              }
            }
          }
        }
      }
    }
  ]
}`

var schemas = map[string]string{
	ArtifactColumns: columnsSchema,
	ArtifactScaler:  scalerSchema,
	ArtifactModel:   modelSchema,
}

// validateArtifact checks a raw artifact against its JSON schema.
func validateArtifact(name string, data []byte) error {
	schema, ok := schemas[name]
	if !ok {
		return fmt.Errorf("unknown artifact %q", name)
	}

	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("%s: validation error: %w", name, err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%s: schema validation failed: %s", name, strings.Join(errs, "; "))
	}

	return nil
}
