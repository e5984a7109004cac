package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ApplicationFact is one row of FCT_APPLICATION, grain: one application.
// MerchantSK is nil when no dimension version was valid at the fact's
// business date; the row is still written.
type ApplicationFact struct {
	ApplicationID   string          `json:"application_id"`
	MerchantID      string          `json:"merchant_id"`
	MerchantSK      *int64          `json:"merchant_sk,omitempty"`
	ApplicationDate time.Time       `json:"application_date"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	LoanPurpose     string          `json:"loan_purpose"`
	Status          string          `json:"application_status"`
	CreditScore     int             `json:"credit_score"`
	BatchDate       time.Time       `json:"batch_date"`
}

// DisbursementFact is one row of FCT_DISBURSEMENT, grain: one disbursement.
type DisbursementFact struct {
	DisbursementID    string          `json:"disbursement_id"`
	ApplicationID     string          `json:"application_id"`
	MerchantID        string          `json:"merchant_id"`
	MerchantSK        *int64          `json:"merchant_sk,omitempty"`
	DisbursedAmount   decimal.Decimal `json:"disbursed_amount"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	TermMonths        int             `json:"term_months"`
	RepaymentSchedule string          `json:"repayment_schedule"`
	DisbursementDate  time.Time       `json:"disbursement_date"`
	BatchDate         time.Time       `json:"batch_date"`
}

// PaymentFact is one row of FCT_PAYMENT, grain: one payment.
type PaymentFact struct {
	PaymentID      string          `json:"payment_id"`
	DisbursementID string          `json:"disbursement_id"`
	MerchantID     string          `json:"merchant_id"`
	MerchantSK     *int64          `json:"merchant_sk,omitempty"`
	PaymentDate    time.Time       `json:"payment_date"`
	PaymentAmount  decimal.Decimal `json:"payment_amount"`
	PaymentMethod  string          `json:"payment_method"`
	IsScheduled    bool            `json:"is_scheduled"`
	DaysFromDue    int             `json:"days_from_due"`
	BatchDate      time.Time       `json:"batch_date"`
}
