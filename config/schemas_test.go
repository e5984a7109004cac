package config

import (
	"os"
	"strings"
	"testing"
)

func writeTempSchemas(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "schemas-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

const validSchemas = `entities:
  merchants:
    natural_key: "merchant_id"
    fields:
      - { name: "merchant_id", type: "string", required: true }
      - { name: "risk_score", type: "decimal", required: false }
dimension:
  merchants:
    tracked_attributes: ["risk_score"]
`

func TestLoadSchemas(t *testing.T) {
	path := writeTempSchemas(t, validSchemas)
	defer os.Remove(path)

	schemas, err := LoadSchemas(path)
	if err != nil {
		t.Fatalf("LoadSchemas failed: %v", err)
	}

	schema, err := schemas.Entity("merchants")
	if err != nil {
		t.Fatalf("Entity failed: %v", err)
	}
	if schema.NaturalKey != "merchant_id" {
		t.Errorf("unexpected natural key: %s", schema.NaturalKey)
	}
	if len(schema.Fields) != 2 {
		t.Errorf("unexpected field count: %d", len(schema.Fields))
	}

	tracked, err := schemas.TrackedAttributes("merchants")
	if err != nil {
		t.Fatalf("TrackedAttributes failed: %v", err)
	}
	if len(tracked) != 1 || tracked[0] != "risk_score" {
		t.Errorf("unexpected tracked attributes: %v", tracked)
	}

	if _, err := schemas.Entity("loans"); err == nil {
		t.Error("expected error for unknown entity")
	}
}

func TestLoadSchemasRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "natural key not a field",
			content: `entities:
  merchants:
    natural_key: "merchant_id"
    fields:
      - { name: "business_name", type: "string", required: true }
`,
			wantErr: "natural_key",
		},
		{
			name: "tracked attribute unknown",
			content: `entities:
  merchants:
    natural_key: "merchant_id"
    fields:
      - { name: "merchant_id", type: "string", required: true }
dimension:
  merchants:
    tracked_attributes: ["color"]
`,
			wantErr: "tracked attribute",
		},
		{
			name: "tracked natural key",
			content: `entities:
  merchants:
    natural_key: "merchant_id"
    fields:
      - { name: "merchant_id", type: "string", required: true }
dimension:
  merchants:
    tracked_attributes: ["merchant_id"]
`,
			wantErr: "must not track",
		},
		{
			name: "invalid field type",
			content: `entities:
  merchants:
    natural_key: "merchant_id"
    fields:
      - { name: "merchant_id", type: "varchar", required: true }
`,
			wantErr: "invalid type",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeTempSchemas(t, c.content)
			defer os.Remove(path)

			_, err := LoadSchemas(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), c.wantErr) {
				t.Errorf("error %q does not mention %q", err, c.wantErr)
			}
		})
	}
}
