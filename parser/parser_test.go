package parser

import (
	"testing"
	"time"

	"lendflow/config"
	"lendflow/models"
)

func testSchemas() *config.Schemas {
	return &config.Schemas{
		Entities: map[string]config.EntitySchema{
			models.EntityMerchants: {
				NaturalKey: "merchant_id",
				Fields: []config.SchemaField{
					{Name: "merchant_id", Type: config.FieldString, Required: true},
					{Name: "business_name", Type: config.FieldString, Required: true},
					{Name: "industry_code", Type: config.FieldString, Required: true},
					{Name: "state_code", Type: config.FieldString, Required: true},
					{Name: "annual_revenue", Type: config.FieldDecimal, Required: false},
					{Name: "employees_count", Type: config.FieldInteger, Required: false},
					{Name: "risk_score", Type: config.FieldDecimal, Required: false},
					{Name: "onboarding_date", Type: config.FieldDate, Required: true},
				},
			},
			models.EntityPayments: {
				NaturalKey: "payment_id",
				Fields: []config.SchemaField{
					{Name: "payment_id", Type: config.FieldString, Required: true},
					{Name: "disbursement_id", Type: config.FieldString, Required: true},
					{Name: "merchant_id", Type: config.FieldString, Required: true},
					{Name: "payment_date", Type: config.FieldDate, Required: true},
					{Name: "payment_amount", Type: config.FieldDecimal, Required: true},
					{Name: "payment_method", Type: config.FieldString, Required: false},
					{Name: "is_scheduled", Type: config.FieldBoolean, Required: false},
					{Name: "days_from_due", Type: config.FieldInteger, Required: false},
					{Name: "processing_timestamp", Type: config.FieldTimestamp, Required: false},
				},
			},
		},
	}
}

func merchantRaw(fields ...string) models.RawRecord {
	return models.RawRecord{
		SourceEntity:    models.EntityMerchants,
		SourceFilename:  "merchants_2025-10-01.csv",
		SourceRowNumber: 2,
		BatchDate:       time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
		LoadTimestamp:   time.Date(2025, 10, 1, 6, 0, 0, 0, time.UTC),
		Fields:          fields,
	}
}

func TestParseMerchant(t *testing.T) {
	p := New(testSchemas())

	record, invalid, err := p.Parse(merchantRaw(
		"M-001", "Acme Bakery", "5812", "CA", "1250000.50", "12", "52.5", "2024-03-15",
	))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if invalid != nil {
		t.Fatalf("unexpected quarantine: %+v", invalid)
	}

	merchant, ok := record.(models.Merchant)
	if !ok {
		t.Fatalf("expected Merchant, got %T", record)
	}
	if merchant.MerchantID != "M-001" {
		t.Errorf("unexpected merchant_id: %s", merchant.MerchantID)
	}
	if merchant.AnnualRevenue.String() != "1250000.5" {
		t.Errorf("unexpected annual_revenue: %s", merchant.AnnualRevenue)
	}
	if merchant.EmployeesCount != 12 {
		t.Errorf("unexpected employees_count: %d", merchant.EmployeesCount)
	}
	if merchant.OnboardingDate.Format(models.DateLayout) != "2024-03-15" {
		t.Errorf("unexpected onboarding_date: %v", merchant.OnboardingDate)
	}
	if merchant.Lineage.SourceRowNumber != 2 {
		t.Errorf("lineage lost: %+v", merchant.Lineage)
	}
}

func TestParseQuarantineReasons(t *testing.T) {
	p := New(testSchemas())

	cases := []struct {
		name   string
		fields []string
		reason models.ReasonCode
		field  string
	}{
		{
			name:   "field count mismatch",
			fields: []string{"M-001", "Acme"},
			reason: models.ReasonFieldCount,
		},
		{
			name:   "missing natural key",
			fields: []string{"", "Acme Bakery", "5812", "CA", "100", "5", "40", "2024-03-15"},
			reason: models.ReasonMissingKey,
			field:  "merchant_id",
		},
		{
			name:   "missing required field",
			fields: []string{"M-001", "", "5812", "CA", "100", "5", "40", "2024-03-15"},
			reason: models.ReasonMissingRequired,
			field:  "business_name",
		},
		{
			name:   "bad numeric",
			fields: []string{"M-001", "Acme Bakery", "5812", "CA", "lots", "5", "40", "2024-03-15"},
			reason: models.ReasonBadNumeric,
			field:  "annual_revenue",
		},
		{
			name:   "bad date",
			fields: []string{"M-001", "Acme Bakery", "5812", "CA", "100", "5", "40", "15/03/2024"},
			reason: models.ReasonBadDate,
			field:  "onboarding_date",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			record, invalid, err := p.Parse(merchantRaw(c.fields...))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if record != nil {
				t.Fatalf("expected quarantine, got clean record %+v", record)
			}
			if invalid == nil {
				t.Fatal("expected quarantine record")
			}
			if invalid.Reason != c.reason {
				t.Errorf("reason = %s, want %s", invalid.Reason, c.reason)
			}
			if c.field != "" && invalid.Field != c.field {
				t.Errorf("field = %s, want %s", invalid.Field, c.field)
			}
		})
	}
}

func TestParseBadBoolean(t *testing.T) {
	p := New(testSchemas())

	raw := models.RawRecord{
		SourceEntity:    models.EntityPayments,
		SourceFilename:  "payments_2025-10-01.csv",
		SourceRowNumber: 3,
		BatchDate:       time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
		Fields: []string{
			"P-001", "D-001", "M-001", "2025-09-30", "420.00", "ach", "yes", "0", "2025-09-30 14:02:11",
		},
	}

	_, invalid, err := p.Parse(raw)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if invalid == nil || invalid.Reason != models.ReasonBadBoolean {
		t.Fatalf("expected BAD_BOOLEAN_FORMAT, got %+v", invalid)
	}
}

func TestParseOptionalEmptyFields(t *testing.T) {
	p := New(testSchemas())

	record, invalid, err := p.Parse(merchantRaw(
		"M-001", "Acme Bakery", "5812", "CA", "", "", "", "2024-03-15",
	))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if invalid != nil {
		t.Fatalf("optional empty fields should not quarantine: %+v", invalid)
	}

	merchant := record.(models.Merchant)
	if !merchant.AnnualRevenue.IsZero() {
		t.Errorf("annual_revenue should be zero, got %s", merchant.AnnualRevenue)
	}
	if merchant.EmployeesCount != 0 {
		t.Errorf("employees_count should be zero, got %d", merchant.EmployeesCount)
	}
}

func TestParseUnknownEntity(t *testing.T) {
	p := New(testSchemas())

	raw := models.RawRecord{SourceEntity: "loans", Fields: []string{"L-001"}}
	if _, _, err := p.Parse(raw); err == nil {
		t.Fatal("expected configuration error for unknown entity")
	}
}

func TestIsHeaderRow(t *testing.T) {
	p := New(testSchemas())

	cases := []struct {
		name   string
		fields []string
		want   bool
	}{
		{
			name: "exact header",
			fields: []string{
				"merchant_id", "business_name", "industry_code", "state_code",
				"annual_revenue", "employees_count", "risk_score", "onboarding_date",
			},
			want: true,
		},
		{
			name: "data row",
			fields: []string{
				"M-001", "Acme Bakery", "5812", "CA", "100", "5", "40", "2024-03-15",
			},
			want: false,
		},
		{
			name: "renamed header still all typed failures",
			fields: []string{
				"id", "name", "industry", "state", "revenue", "employees", "risk", "onboarded",
			},
			want: true,
		},
		{
			name:   "wrong width",
			fields: []string{"merchant_id", "business_name"},
			want:   false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			raw := merchantRaw(c.fields...)
			raw.SourceRowNumber = 1
			if got := p.IsHeaderRow(raw); got != c.want {
				t.Errorf("IsHeaderRow = %v, want %v", got, c.want)
			}
		})
	}
}
