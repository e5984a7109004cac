package models

import (
	"time"
)

// Entity names match the prefix of the files dropped by the ingestion
// collaborator (e.g. merchants_2025-10-01.csv).
const (
	EntityMerchants     = "merchants"
	EntityApplications  = "applications"
	EntityDisbursements = "disbursements"
	EntityPayments      = "payments"
)

// Entities lists every source entity in pipeline order.
var Entities = []string{EntityMerchants, EntityApplications, EntityDisbursements, EntityPayments}

// RawRecord is one untyped row delivered by the raw ingestion collaborator.
// It is append-only and already tagged with its file lineage; the core never
// re-derives the batch date.
type RawRecord struct {
	SourceEntity    string    `json:"source_entity"`
	SourceFilename  string    `json:"source_filename"`
	SourceRowNumber int       `json:"source_row_number"`
	BatchDate       time.Time `json:"batch_date"`
	LoadTimestamp   time.Time `json:"load_timestamp"`
	Fields          []string  `json:"fields"`
}

// ReasonCode classifies why a record was quarantined instead of promoted.
type ReasonCode string

const (
	ReasonMissingKey      ReasonCode = "MISSING_KEY"
	ReasonMissingRequired ReasonCode = "MISSING_REQUIRED"
	ReasonFieldCount      ReasonCode = "FIELD_COUNT_MISMATCH"
	ReasonBadNumeric      ReasonCode = "BAD_NUMERIC_FORMAT"
	ReasonBadDate         ReasonCode = "BAD_DATE_FORMAT"
	ReasonBadBoolean      ReasonCode = "BAD_BOOLEAN_FORMAT"
	ReasonDuplicate       ReasonCode = "DUPLICATE"
	ReasonOutOfOrderBatch ReasonCode = "OUT_OF_ORDER_BATCH"
)

// InvalidRecord is a quarantined row: the raw lineage plus the first failing
// field and reason. Invalid records are never promoted past staging.
type InvalidRecord struct {
	SourceEntity    string     `json:"source_entity"`
	SourceFilename  string     `json:"source_filename"`
	SourceRowNumber int        `json:"source_row_number"`
	BatchDate       time.Time  `json:"batch_date"`
	Reason          ReasonCode `json:"reason"`
	Field           string     `json:"field,omitempty"`
	Detail          string     `json:"detail,omitempty"`
}
