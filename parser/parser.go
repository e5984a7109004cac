package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lendflow/config"
	"lendflow/models"
)

// Parser converts untyped raw rows into typed clean records using positional
// schema binding. Parsing is pure: malformed rows are routed to quarantine,
// never raised as errors. The only error returned is a configuration problem
// (unknown entity schema), which callers treat as fatal.
type Parser struct {
	schemas *config.Schemas
}

func New(schemas *config.Schemas) *Parser {
	return &Parser{schemas: schemas}
}

// Parse converts one raw row. Exactly one of the two returns is non-nil
// unless the entity has no configured schema.
func (p *Parser) Parse(raw models.RawRecord) (models.CleanRecord, *models.InvalidRecord, error) {
	schema, err := p.schemas.Entity(raw.SourceEntity)
	if err != nil {
		return nil, nil, err
	}

	if len(raw.Fields) != len(schema.Fields) {
		return nil, invalid(raw, models.ReasonFieldCount, "",
			fmt.Sprintf("expected %d fields, got %d", len(schema.Fields), len(raw.Fields))), nil
	}

	row := make(map[string]interface{}, len(schema.Fields))
	for i, field := range schema.Fields {
		value := strings.TrimSpace(raw.Fields[i])

		if value == "" {
			if field.Required {
				reason := models.ReasonMissingRequired
				if field.Name == schema.NaturalKey {
					reason = models.ReasonMissingKey
				}
				return nil, invalid(raw, reason, field.Name, "required field is empty"), nil
			}
			row[field.Name] = zeroValue(field.Type)
			continue
		}

		typed, reason := coerce(field.Type, value)
		if reason != "" {
			return nil, invalid(raw, reason, field.Name, fmt.Sprintf("cannot parse '%s' as %s", value, field.Type)), nil
		}
		row[field.Name] = typed
	}

	lin := models.Lineage{
		SourceFilename:  raw.SourceFilename,
		SourceRowNumber: raw.SourceRowNumber,
		BatchDate:       raw.BatchDate,
		LoadTimestamp:   raw.LoadTimestamp,
	}

	record, err := bind(raw.SourceEntity, row, lin)
	if err != nil {
		return nil, nil, err
	}
	return record, nil, nil
}

// IsHeaderRow reports whether a row looks like a CSV header rather than
// data. The feed omits header rows on some days, so the check is a
// heuristic: either every field matches its schema column name, or every
// typed (non-string) column fails coercion at once.
func (p *Parser) IsHeaderRow(raw models.RawRecord) bool {
	schema, err := p.schemas.Entity(raw.SourceEntity)
	if err != nil || len(raw.Fields) != len(schema.Fields) {
		return false
	}

	nameMatches := 0
	typedFields := 0
	typedFailures := 0
	for i, field := range schema.Fields {
		value := strings.TrimSpace(raw.Fields[i])
		if strings.EqualFold(value, field.Name) {
			nameMatches++
		}
		if field.Type == config.FieldString {
			continue
		}
		typedFields++
		if _, reason := coerce(field.Type, value); reason != "" {
			typedFailures++
		}
	}

	if nameMatches == len(schema.Fields) {
		return true
	}
	return typedFields > 0 && typedFailures == typedFields
}

func invalid(raw models.RawRecord, reason models.ReasonCode, field, detail string) *models.InvalidRecord {
	return &models.InvalidRecord{
		SourceEntity:    raw.SourceEntity,
		SourceFilename:  raw.SourceFilename,
		SourceRowNumber: raw.SourceRowNumber,
		BatchDate:       raw.BatchDate,
		Reason:          reason,
		Field:           field,
		Detail:          detail,
	}
}

func coerce(fieldType, value string) (interface{}, models.ReasonCode) {
	switch fieldType {
	case config.FieldString:
		return value, ""
	case config.FieldInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, models.ReasonBadNumeric
		}
		return n, ""
	case config.FieldDecimal:
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, models.ReasonBadNumeric
		}
		return d, ""
	case config.FieldDate:
		t, err := time.Parse(models.DateLayout, value)
		if err != nil {
			return nil, models.ReasonBadDate
		}
		return t, ""
	case config.FieldTimestamp:
		t, err := time.Parse(models.TimestampLayout, value)
		if err != nil {
			return nil, models.ReasonBadDate
		}
		return t, ""
	case config.FieldBoolean:
		switch strings.ToUpper(value) {
		case "TRUE":
			return true, ""
		case "FALSE":
			return false, ""
		default:
			return nil, models.ReasonBadBoolean
		}
	default:
		return nil, models.ReasonBadNumeric
	}
}

func zeroValue(fieldType string) interface{} {
	switch fieldType {
	case config.FieldInteger:
		return int64(0)
	case config.FieldDecimal:
		return decimal.Zero
	case config.FieldDate, config.FieldTimestamp:
		return time.Time{}
	case config.FieldBoolean:
		return false
	default:
		return ""
	}
}
