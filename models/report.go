package models

import "time"

// EntityCounts is the per-entity row accounting for one batch. For every
// entity and batch, Raw == Clean + Invalid.
type EntityCounts struct {
	Raw        int `json:"raw"`
	Clean      int `json:"clean"`
	Invalid    int `json:"invalid"`
	Duplicates int `json:"duplicates"`
}

// ReferentialReport holds the orphan counts computed by the reconciler.
// Orphans are observable data-quality findings, never errors.
type ReferentialReport struct {
	BatchDate               time.Time `json:"batch_date"`
	OrphanDisbursements     int       `json:"orphan_disbursements"`
	OrphanPayments          int       `json:"orphan_payments"`
	MissingApplicationIDs   []string  `json:"missing_application_ids,omitempty"`
	MissingDisbursementIDs  []string  `json:"missing_disbursement_ids,omitempty"`
	FactsWithoutMerchantSK  int       `json:"facts_without_merchant_sk"`
	DelinquentPayments      int       `json:"delinquent_payments"`
	DelinquencyDPDThreshold int       `json:"delinquency_dpd_threshold"`
}

// RunSummary is the operator-visible outcome of one pipeline run.
type RunSummary struct {
	RunID             string                  `json:"run_id"`
	BatchDate         time.Time               `json:"batch_date"`
	StartedAt         time.Time               `json:"started_at"`
	FinishedAt        time.Time               `json:"finished_at"`
	Entities          map[string]EntityCounts `json:"entities"`
	DimensionInserted int                     `json:"dimension_versions_inserted"`
	DimensionClosed   int                     `json:"dimension_versions_closed"`
	DimensionRejected int                     `json:"dimension_out_of_order_rejected"`
	Referential       ReferentialReport       `json:"referential"`
	Failed            bool                    `json:"failed"`
	FailureReason     string                  `json:"failure_reason,omitempty"`
}
