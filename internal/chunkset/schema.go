package chunkset

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["toc", "tables", "figures", "texts"],
  "definitions": {
    "bbox": {
      "type": "array",
      "items": {"type": "number"},
      "minItems": 4,
      "maxItems": 4
    },
    "tocEntry": {
      "type": "object",
      "required": ["label", "title", "page"],
      "properties": {
        "label": {"type": "string"},
        "title": {"type": "string"},
        "page": {"type": "integer", "minimum": 1}
      }
    },
    "region": {
      "type": "object",
      "required": ["type", "label", "title", "caption", "page", "bbox"],
      "properties": {
        "type": {"enum": ["table", "figure"]},
        "label": {"type": "string"},
        "title": {"type": "string"},
        "caption": {"type": "string"},
        "page": {"type": "integer", "minimum": 1},
        "bbox": {"$ref": "#/definitions/bbox"},
        "preview_md": {"type": "string"},
        "preview_source": {"enum": ["text", "ocr"]},
        "text": {"type": "string"}
      }
    }
  },
  "properties": {
    "toc": {
      "type": "object",
      "required": ["tables", "figures"],
      "properties": {
        "tables": {"type": ["array", "null"], "items": {"$ref": "#/definitions/tocEntry"}},
        "figures": {"type": ["array", "null"], "items": {"$ref": "#/definitions/tocEntry"}}
      }
    },
    "tables": {"type": ["array", "null"], "items": {"$ref": "#/definitions/region"}},
    "figures": {"type": ["array", "null"], "items": {"$ref": "#/definitions/region"}},
    "texts": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["page", "text", "is_toc"],
        "properties": {
          "page": {"type": "integer", "minimum": 1},
          "text": {"type": "string"},
          "is_toc": {"type": "boolean"}
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("chunkset.json", strings.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("chunkset.json")
	})
	return schema, schemaErr
}

// Validate checks serialized ChunkSet JSON against the ChunkSet schema.
func Validate(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal chunkset: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("chunkset does not match schema: %w", err)
	}
	return nil
}

// Decode validates data and unmarshals it into a ChunkSet.
func Decode(data []byte) (*ChunkSet, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	cs := New()
	if err := json.Unmarshal(data, cs); err != nil {
		return nil, fmt.Errorf("decode chunkset: %w", err)
	}
	return cs, nil
}
