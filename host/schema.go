package host

import (
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// OptionsSchema validates launch options against a JSON schema.
type OptionsSchema struct {
	schema *gojsonschema.Schema
}

// NewOptionsSchema compiles a JSON schema document.
func NewOptionsSchema(data []byte) (*OptionsSchema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid launch options schema: %w", err)
	}
	return &OptionsSchema{schema: schema}, nil
}

// LoadOptionsSchema reads and compiles the schema at path.
func LoadOptionsSchema(path string) (*OptionsSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read launch options schema: %w", err)
	}
	return NewOptionsSchema(data)
}

// Validate checks lc.Options against the schema. Absent options validate as
// an empty object.
func (s *OptionsSchema) Validate(lc *LaunchContext) error {
	options := map[string]interface{}{}
	if lc != nil {
		for k, v := range lc.Options {
			options[k] = v
		}
	}

	result, err := s.schema.Validate(gojsonschema.NewGoLoader(options))
	if err != nil {
		return fmt.Errorf("failed to validate launch options: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("launch options do not match schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}
