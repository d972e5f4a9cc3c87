package formstats

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const manifestSchemaName = "formstats-manifest.json"

const manifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["templates"],
  "additionalProperties": false,
  "properties": {
    "version": {"type": "string", "enum": ["1"]},
    "templates": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "metrics"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "metrics": {
            "type": "array",
            "minItems": 1,
            "items": {"type": "string", "pattern": "^ga:"}
          },
          "dimensions": {
            "type": "array",
            "items": {"type": "string", "pattern": "^ga:"}
          },
          "filters": {
            "type": "array",
            "items": {"enum": ["view", "slug", "submission", "error", "acknowledgement", "field_error"]}
          },
          "clause_operator": {"enum": ["AND", "OR", ""]},
          "order_by": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["field"],
              "additionalProperties": false,
              "properties": {
                "field": {"type": "string", "pattern": "^ga:"},
                "order": {"enum": ["ASCENDING", "DESCENDING"]}
              }
            }
          },
          "end_date": {"type": "string", "minLength": 1},
          "queries": {
            "type": "array",
            "items": {"enum": ["pageViewQuery", "sectionViewQuery", "fieldErrorQuery"]}
          }
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func manifestSchemaValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(manifestSchemaName, strings.NewReader(manifestSchema)); err != nil {
			schemaErr = fmt.Errorf("formstats: load manifest schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(manifestSchemaName)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("formstats: compile manifest schema: %w", schemaErr)
		}
	})
	return compiledSchema, schemaErr
}

// validateManifestSchema checks raw YAML against the manifest schema. The
// document is normalised through JSON so the validator sees plain types.
func validateManifestSchema(data []byte) error {
	schema, err := manifestSchemaValidator()
	if err != nil {
		return err
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("formstats: parse manifest: %w", err)
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("formstats: normalize manifest: %w", err)
	}
	var payload any
	if err := json.Unmarshal(encoded, &payload); err != nil {
		return fmt.Errorf("formstats: normalize manifest: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("formstats: manifest failed validation: %w", err)
	}
	return nil
}
