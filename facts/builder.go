package facts

import (
	"sort"
	"sync"
	"time"

	"lendflow/config"
	"lendflow/logger"
	"lendflow/models"
)

// Resolver looks up the dimension version valid at a business date.
// dimension.Builder satisfies it.
type Resolver interface {
	ResolveSK(merchantID string, d time.Time) (int64, bool)
}

// Builder materializes fact rows from staged clean records, resolving each
// row to the merchant dimension version valid at its business date. Facts
// are never dropped for missing dimension linkage: merchant_sk stays nil and
// downstream coverage checks pick it up.
type Builder struct {
	mu  sync.Mutex
	cfg config.FactsConfig
	dim Resolver
	log *logger.Log

	applications  map[string]models.ApplicationFact
	disbursements map[string]models.DisbursementFact
	payments      map[string]models.PaymentFact
}

func NewBuilder(cfg config.FactsConfig, dim Resolver) *Builder {
	return &Builder{
		cfg:           cfg,
		dim:           dim,
		log:           logger.GetLogger(),
		applications:  make(map[string]models.ApplicationFact),
		disbursements: make(map[string]models.DisbursementFact),
		payments:      make(map[string]models.PaymentFact),
	}
}

// businessDate picks the date used for merchant_sk resolution per the
// configured basis: the transaction's own event date by default, or the
// batch date.
func (b *Builder) businessDate(entity string, eventDate, batchDate time.Time) time.Time {
	if b.cfg.DateBasisFor(entity) == config.DateBasisBatch {
		return batchDate
	}
	return eventDate
}

func (b *Builder) resolve(entity, merchantID string, eventDate, batchDate time.Time) *int64 {
	d := b.businessDate(entity, eventDate, batchDate)
	sk, ok := b.dim.ResolveSK(merchantID, d)
	if !ok {
		b.log.WithComponent("fact_builder").WithFields(logger.Fields{
			"entity":        entity,
			"merchant_id":   merchantID,
			"business_date": d.Format(models.DateLayout),
		}).Warn("no dimension version valid at business date; writing fact with null merchant_sk")
		return nil
	}
	return &sk
}

// accept applies the late-correction policy for a natural key that already
// has a fact row: the newest batch wins by default.
func (b *Builder) accept(existingBatch, incomingBatch time.Time, exists bool) bool {
	if !exists {
		return true
	}
	if b.cfg.LatePolicy == config.LatePolicyFirstBatchWins {
		return false
	}
	return !incomingBatch.Before(existingBatch)
}

// BuildApplications materializes FCT_APPLICATION rows. Returns the number of
// rows written or replaced.
func (b *Builder) BuildApplications(records []models.Application) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	written := 0
	for _, rec := range records {
		existing, exists := b.applications[rec.ApplicationID]
		if !b.accept(existing.BatchDate, rec.Lineage.BatchDate, exists) {
			continue
		}
		b.applications[rec.ApplicationID] = models.ApplicationFact{
			ApplicationID:   rec.ApplicationID,
			MerchantID:      rec.MerchantID,
			MerchantSK:      b.resolve(models.EntityApplications, rec.MerchantID, rec.ApplicationDate, rec.Lineage.BatchDate),
			ApplicationDate: rec.ApplicationDate,
			RequestedAmount: rec.RequestedAmount,
			LoanPurpose:     rec.LoanPurpose,
			Status:          rec.Status,
			CreditScore:     rec.CreditScore,
			BatchDate:       rec.Lineage.BatchDate,
		}
		written++
	}
	return written
}

// BuildDisbursements materializes FCT_DISBURSEMENT rows.
func (b *Builder) BuildDisbursements(records []models.Disbursement) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	written := 0
	for _, rec := range records {
		existing, exists := b.disbursements[rec.DisbursementID]
		if !b.accept(existing.BatchDate, rec.Lineage.BatchDate, exists) {
			continue
		}
		b.disbursements[rec.DisbursementID] = models.DisbursementFact{
			DisbursementID:    rec.DisbursementID,
			ApplicationID:     rec.ApplicationID,
			MerchantID:        rec.MerchantID,
			MerchantSK:        b.resolve(models.EntityDisbursements, rec.MerchantID, rec.DisbursementDate, rec.Lineage.BatchDate),
			DisbursedAmount:   rec.DisbursedAmount,
			InterestRate:      rec.InterestRate,
			TermMonths:        rec.TermMonths,
			RepaymentSchedule: rec.RepaymentSchedule,
			DisbursementDate:  rec.DisbursementDate,
			BatchDate:         rec.Lineage.BatchDate,
		}
		written++
	}
	return written
}

// BuildPayments materializes FCT_PAYMENT rows.
func (b *Builder) BuildPayments(records []models.Payment) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	written := 0
	for _, rec := range records {
		existing, exists := b.payments[rec.PaymentID]
		if !b.accept(existing.BatchDate, rec.Lineage.BatchDate, exists) {
			continue
		}
		b.payments[rec.PaymentID] = models.PaymentFact{
			PaymentID:      rec.PaymentID,
			DisbursementID: rec.DisbursementID,
			MerchantID:     rec.MerchantID,
			MerchantSK:     b.resolve(models.EntityPayments, rec.MerchantID, rec.PaymentDate, rec.Lineage.BatchDate),
			PaymentDate:    rec.PaymentDate,
			PaymentAmount:  rec.PaymentAmount,
			PaymentMethod:  rec.PaymentMethod,
			IsScheduled:    rec.IsScheduled,
			DaysFromDue:    rec.DaysFromDue,
			BatchDate:      rec.Lineage.BatchDate,
		}
		written++
	}
	return written
}

// Applications returns FCT_APPLICATION ordered by natural key.
func (b *Builder) Applications() []models.ApplicationFact {
	b.mu.Lock()
	defer b.mu.Unlock()
	rows := make([]models.ApplicationFact, 0, len(b.applications))
	for _, row := range b.applications {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ApplicationID < rows[j].ApplicationID })
	return rows
}

// Disbursements returns FCT_DISBURSEMENT ordered by natural key.
func (b *Builder) Disbursements() []models.DisbursementFact {
	b.mu.Lock()
	defer b.mu.Unlock()
	rows := make([]models.DisbursementFact, 0, len(b.disbursements))
	for _, row := range b.disbursements {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DisbursementID < rows[j].DisbursementID })
	return rows
}

// Payments returns FCT_PAYMENT ordered by natural key.
func (b *Builder) Payments() []models.PaymentFact {
	b.mu.Lock()
	defer b.mu.Unlock()
	rows := make([]models.PaymentFact, 0, len(b.payments))
	for _, row := range b.payments {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PaymentID < rows[j].PaymentID })
	return rows
}
