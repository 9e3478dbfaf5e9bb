package yaml

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/xeipuuv/gojsonschema"
)

// graphSchema is the structural contract for a pipeline definition. Semantic
// rules (unique names, resolvable references) are checked separately by
// GraphDefinition.Validate.
const graphSchema = `{
	"type": "object",
	"required": ["name", "start", "nodes"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"description": {"type": "string"},
		"version": {"type": "string"},
		"start": {"type": "string", "minLength": 1},
		"nodes": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["name", "type"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"type": {"type": "string", "minLength": 1},
					"config": {"type": "object"}
				}
			}
		},
		"connections": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["from", "to"],
				"properties": {
					"from": {"type": "string", "minLength": 1},
					"to": {"type": "string", "minLength": 1},
					"action": {"type": "string"}
				}
			}
		}
	}
}`

// Parser parses and validates YAML pipeline definitions.
type Parser struct {
	schema *gojsonschema.Schema
}

// NewParser creates a parser with the definition schema compiled once.
func NewParser() (*Parser, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(graphSchema))
	if err != nil {
		return nil, fmt.Errorf("compile definition schema: %w", err)
	}
	return &Parser{schema: schema}, nil
}

// Parse reads a YAML pipeline definition, validates it against the schema and
// the semantic graph rules, and returns it.
func (p *Parser) Parse(r io.Reader) (*GraphDefinition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}

	// Schema validation runs over the generic document so structural errors
	// carry YAML field paths rather than Go decoding errors.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	result, err := p.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate definition: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("invalid definition: %s", strings.Join(msgs, "; "))
	}

	var gd GraphDefinition
	if err := yaml.Unmarshal(data, &gd); err != nil {
		return nil, fmt.Errorf("decode definition: %w", err)
	}

	if err := gd.Validate(); err != nil {
		return nil, err
	}

	return &gd, nil
}

// ParseFile reads and parses a YAML pipeline definition from a file.
func (p *Parser) ParseFile(filename string) (*GraphDefinition, error) {
	// #nosec G304 - the parser accepts caller-chosen definition paths
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return p.Parse(file)
}

// ParseString parses a YAML pipeline definition from a string.
func (p *Parser) ParseString(s string) (*GraphDefinition, error) {
	return p.Parse(strings.NewReader(s))
}

// Marshal converts a definition back to YAML.
func (p *Parser) Marshal(gd *GraphDefinition) ([]byte, error) {
	return yaml.Marshal(gd)
}
