package reconcile

import (
	"sort"
	"time"

	"lendflow/logger"
	"lendflow/models"
)

// Reconciler computes referential gaps across the fact tables without
// mutating anything. Orphans are expected with imperfect partner data; they
// are reported, never fatal.
type Reconciler struct {
	dpdThreshold int
	log          *logger.Log
}

// NewReconciler creates a reconciler. dpdThreshold is the configured
// days-past-due level above which a payment counts as delinquent in the
// report; zero disables the count.
func NewReconciler(dpdThreshold int) *Reconciler {
	return &Reconciler{dpdThreshold: dpdThreshold, log: logger.GetLogger()}
}

// Reconcile produces the data-quality report for one batch: disbursements
// whose application is missing, payments whose disbursement is missing,
// facts without a resolved merchant_sk, and delinquent payments.
func (r *Reconciler) Reconcile(batchDate time.Time, apps []models.ApplicationFact, disbs []models.DisbursementFact, pays []models.PaymentFact) models.ReferentialReport {
	appIDs := make(map[string]bool, len(apps))
	for _, app := range apps {
		appIDs[app.ApplicationID] = true
	}
	disbIDs := make(map[string]bool, len(disbs))
	for _, disb := range disbs {
		disbIDs[disb.DisbursementID] = true
	}

	report := models.ReferentialReport{
		BatchDate:               batchDate,
		DelinquencyDPDThreshold: r.dpdThreshold,
	}

	missingApps := make(map[string]bool)
	for _, disb := range disbs {
		if !appIDs[disb.ApplicationID] {
			report.OrphanDisbursements++
			missingApps[disb.ApplicationID] = true
		}
		if disb.MerchantSK == nil {
			report.FactsWithoutMerchantSK++
		}
	}

	missingDisbs := make(map[string]bool)
	for _, pay := range pays {
		if !disbIDs[pay.DisbursementID] {
			report.OrphanPayments++
			missingDisbs[pay.DisbursementID] = true
		}
		if pay.MerchantSK == nil {
			report.FactsWithoutMerchantSK++
		}
		if r.dpdThreshold > 0 && pay.DaysFromDue >= r.dpdThreshold {
			report.DelinquentPayments++
		}
	}

	for _, app := range apps {
		if app.MerchantSK == nil {
			report.FactsWithoutMerchantSK++
		}
	}

	report.MissingApplicationIDs = sortedKeys(missingApps)
	report.MissingDisbursementIDs = sortedKeys(missingDisbs)

	log := r.log.WithComponent("reconciler").WithFields(logger.Fields{
		"batch_date":           batchDate.Format(models.DateLayout),
		"orphan_disbursements": report.OrphanDisbursements,
		"orphan_payments":      report.OrphanPayments,
		"facts_without_sk":     report.FactsWithoutMerchantSK,
		"delinquent_payments":  report.DelinquentPayments,
	})
	if report.OrphanDisbursements > 0 || report.OrphanPayments > 0 {
		log.Warn("referential gaps detected")
	} else {
		log.Info("referential reconciliation clean")
	}

	return report
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
