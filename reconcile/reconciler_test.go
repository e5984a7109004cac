package reconcile

import (
	"testing"
	"time"

	"lendflow/models"
)

func sk(v int64) *int64 { return &v }

func TestReconcileFindsReferentialGaps(t *testing.T) {
	batchDate := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	r := NewReconciler(30)

	apps := []models.ApplicationFact{
		{ApplicationID: "A-001", MerchantID: "M-001", MerchantSK: sk(1), BatchDate: batchDate},
	}
	disbs := []models.DisbursementFact{
		{DisbursementID: "D-001", ApplicationID: "A-001", MerchantSK: sk(1), BatchDate: batchDate},
		{DisbursementID: "D-002", ApplicationID: "A-009", MerchantSK: nil, BatchDate: batchDate},
	}
	pays := []models.PaymentFact{
		{PaymentID: "P-001", DisbursementID: "D-001", MerchantSK: sk(1), DaysFromDue: 3, BatchDate: batchDate},
		{PaymentID: "P-002", DisbursementID: "D-404", MerchantSK: sk(1), DaysFromDue: 45, BatchDate: batchDate},
	}

	report := r.Reconcile(batchDate, apps, disbs, pays)

	if report.OrphanDisbursements != 1 {
		t.Errorf("orphan disbursements = %d, want 1", report.OrphanDisbursements)
	}
	if len(report.MissingApplicationIDs) != 1 || report.MissingApplicationIDs[0] != "A-009" {
		t.Errorf("missing application ids = %v, want [A-009]", report.MissingApplicationIDs)
	}
	if report.OrphanPayments != 1 {
		t.Errorf("orphan payments = %d, want 1", report.OrphanPayments)
	}
	if len(report.MissingDisbursementIDs) != 1 || report.MissingDisbursementIDs[0] != "D-404" {
		t.Errorf("missing disbursement ids = %v, want [D-404]", report.MissingDisbursementIDs)
	}
	if report.FactsWithoutMerchantSK != 1 {
		t.Errorf("facts without merchant_sk = %d, want 1", report.FactsWithoutMerchantSK)
	}
	if report.DelinquentPayments != 1 {
		t.Errorf("delinquent payments = %d, want 1", report.DelinquentPayments)
	}
}

func TestReconcileCleanBatch(t *testing.T) {
	batchDate := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	r := NewReconciler(30)

	apps := []models.ApplicationFact{{ApplicationID: "A-001", MerchantSK: sk(1)}}
	disbs := []models.DisbursementFact{{DisbursementID: "D-001", ApplicationID: "A-001", MerchantSK: sk(1)}}
	pays := []models.PaymentFact{{PaymentID: "P-001", DisbursementID: "D-001", MerchantSK: sk(1), DaysFromDue: 29}}

	report := r.Reconcile(batchDate, apps, disbs, pays)

	if report.OrphanDisbursements != 0 || report.OrphanPayments != 0 || report.FactsWithoutMerchantSK != 0 {
		t.Errorf("expected clean report, got %+v", report)
	}
	if report.DelinquentPayments != 0 {
		t.Errorf("29 days past due is below the threshold, got %d delinquent", report.DelinquentPayments)
	}
	if report.MissingApplicationIDs != nil || report.MissingDisbursementIDs != nil {
		t.Errorf("expected no missing ids, got %v / %v", report.MissingApplicationIDs, report.MissingDisbursementIDs)
	}
}

func TestReconcileZeroThresholdDisablesDelinquency(t *testing.T) {
	batchDate := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	r := NewReconciler(0)

	pays := []models.PaymentFact{{PaymentID: "P-001", DisbursementID: "D-001", MerchantSK: sk(1), DaysFromDue: 90}}
	disbs := []models.DisbursementFact{{DisbursementID: "D-001", ApplicationID: "A-001", MerchantSK: sk(1)}}
	apps := []models.ApplicationFact{{ApplicationID: "A-001", MerchantSK: sk(1)}}

	report := r.Reconcile(batchDate, apps, disbs, pays)
	if report.DelinquentPayments != 0 {
		t.Errorf("threshold 0 should disable delinquency counting, got %d", report.DelinquentPayments)
	}
}
