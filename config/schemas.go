package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Field types understood by the typed record parser.
const (
	FieldString    = "string"
	FieldInteger   = "integer"
	FieldDecimal   = "decimal"
	FieldDate      = "date"
	FieldTimestamp = "timestamp"
	FieldBoolean   = "boolean"
)

// SchemaField is one positional column of a source file. Binding is by
// position, never by header name, since the feed omits headers on some days.
type SchemaField struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
}

// EntitySchema is the ordered column list for one source entity.
type EntitySchema struct {
	NaturalKey string        `yaml:"natural_key"`
	Fields     []SchemaField `yaml:"fields"`
}

// DimensionSchema names the attributes tracked for SCD2 change detection.
// Attributes outside the list follow SCD1 overwrite semantics.
type DimensionSchema struct {
	TrackedAttributes []string `yaml:"tracked_attributes"`
}

// Schemas is the full schema configuration file: entity layouts plus the
// dimension tracking policy. Both are operator inputs, not code.
type Schemas struct {
	Entities  map[string]EntitySchema    `yaml:"entities"`
	Dimension map[string]DimensionSchema `yaml:"dimension"`
}

// Entity returns the schema for the named entity. A missing schema is a
// configuration error and aborts the run before any writes.
func (s *Schemas) Entity(name string) (EntitySchema, error) {
	schema, ok := s.Entities[name]
	if !ok {
		return EntitySchema{}, fmt.Errorf("no schema configured for entity '%s'", name)
	}
	return schema, nil
}

// TrackedAttributes returns the SCD2 attribute list for a dimension.
func (s *Schemas) TrackedAttributes(dimension string) ([]string, error) {
	dim, ok := s.Dimension[dimension]
	if !ok || len(dim.TrackedAttributes) == 0 {
		return nil, fmt.Errorf("no tracked attributes configured for dimension '%s'", dimension)
	}
	return dim.TrackedAttributes, nil
}

// LoadSchemas loads and validates schema configuration from the given path.
func LoadSchemas(path string) (*Schemas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schemas file: %w", err)
	}
	var schemas Schemas
	if err := yaml.Unmarshal(data, &schemas); err != nil {
		return nil, fmt.Errorf("failed to parse schemas file: %w", err)
	}
	if err := validateSchemas(&schemas); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	return &schemas, nil
}

func validateSchemas(s *Schemas) error {
	if len(s.Entities) == 0 {
		return fmt.Errorf("at least one entity schema is required")
	}

	validTypes := map[string]bool{
		FieldString:    true,
		FieldInteger:   true,
		FieldDecimal:   true,
		FieldDate:      true,
		FieldTimestamp: true,
		FieldBoolean:   true,
	}

	for entity, schema := range s.Entities {
		if len(schema.Fields) == 0 {
			return fmt.Errorf("entity '%s' has no fields", entity)
		}
		if schema.NaturalKey == "" {
			return fmt.Errorf("entity '%s' has no natural_key", entity)
		}
		names := make(map[string]bool, len(schema.Fields))
		for _, field := range schema.Fields {
			if field.Name == "" {
				return fmt.Errorf("entity '%s' has a field without a name", entity)
			}
			if !validTypes[field.Type] {
				return fmt.Errorf("entity '%s' field '%s' has invalid type '%s'", entity, field.Name, field.Type)
			}
			if names[field.Name] {
				return fmt.Errorf("entity '%s' field '%s' is defined twice", entity, field.Name)
			}
			names[field.Name] = true
		}
		if !names[schema.NaturalKey] {
			return fmt.Errorf("entity '%s' natural_key '%s' is not among its fields", entity, schema.NaturalKey)
		}
	}

	for dimension, dim := range s.Dimension {
		if len(dim.TrackedAttributes) == 0 {
			return fmt.Errorf("dimension '%s' has an empty tracked_attributes list", dimension)
		}
		schema, ok := s.Entities[dimension]
		if !ok {
			return fmt.Errorf("dimension '%s' has no matching entity schema", dimension)
		}
		names := make(map[string]bool, len(schema.Fields))
		for _, field := range schema.Fields {
			names[field.Name] = true
		}
		for _, attr := range dim.TrackedAttributes {
			if !names[attr] {
				return fmt.Errorf("dimension '%s' tracked attribute '%s' is not a schema field", dimension, attr)
			}
			if attr == schema.NaturalKey {
				return fmt.Errorf("dimension '%s' must not track its natural key '%s'", dimension, attr)
			}
		}
	}

	return nil
}
