package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiled schemas keyed by Schema.Name
var schemaCache sync.Map

// decodeOutput turns raw model text into JSON that satisfies schema.
// Models sometimes wrap JSON in prose or markdown fences; the outermost
// JSON value of the schema's top-level type is salvaged before giving up.
func decodeOutput(schema *Schema, raw []byte) (json.RawMessage, error) {
	if schema == nil {
		return json.RawMessage(raw), nil
	}

	content := bytes.TrimSpace(raw)
	if len(content) == 0 {
		return nil, &ErrInvalidResponse{Err: ErrEmptyOutput}
	}

	var parsed any
	if err := json.Unmarshal(content, &parsed); err != nil {
		salvaged, ok := salvageJSON(content, topLevelType(schema))
		if !ok {
			return nil, &ErrInvalidResponse{
				Content: json.RawMessage(content),
				Err:     fmt.Errorf("%w: %v", ErrNotJSON, err),
			}
		}
		if err := json.Unmarshal(salvaged, &parsed); err != nil {
			return nil, &ErrInvalidResponse{
				Content: json.RawMessage(content),
				Err:     fmt.Errorf("%w: %v", ErrMalformedJSON, err),
			}
		}
		content = salvaged
	}

	compiled, err := compileSchema(schema)
	if err != nil {
		return nil, &ErrInvalidResponse{
			Content: json.RawMessage(content),
			Err:     fmt.Errorf("compile schema %q: %w", schema.Name, err),
		}
	}

	if err := compiled.Validate(parsed); err != nil {
		return nil, &ErrInvalidResponse{
			Content: json.RawMessage(content),
			Err:     fmt.Errorf("%w: %v", ErrSchemaMismatch, err),
		}
	}

	return json.RawMessage(content), nil
}

// salvageJSON returns the span from the first opening delimiter to the last
// closing one, preferring a span that parses. kind is "object", "array" or
// "" to accept either.
func salvageJSON(content []byte, kind string) ([]byte, bool) {
	var pairs [][2]byte
	switch kind {
	case "object":
		pairs = [][2]byte{{'{', '}'}}
	case "array":
		pairs = [][2]byte{{'[', ']'}}
	default:
		pairs = [][2]byte{{'{', '}'}, {'[', ']'}}
	}

	var found []byte
	for _, p := range pairs {
		start := bytes.IndexByte(content, p[0])
		end := bytes.LastIndexByte(content, p[1])
		if start < 0 || end <= start {
			continue
		}
		candidate := content[start : end+1]
		if json.Valid(candidate) {
			return candidate, true
		}
		if found == nil {
			found = candidate
		}
	}
	return found, found != nil
}

func topLevelType(schema *Schema) string {
	t, _ := schema.Definition["type"].(string)
	return t
}

func compileSchema(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants plain decoded JSON values, not Go maps with typed slices.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	def, err := jsonschema.UnmarshalJSON(bytes.NewReader(defBytes))
	if err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(url, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}
