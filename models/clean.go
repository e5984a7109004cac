package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lineage carries the raw-file provenance of a clean record through staging.
// Deduplication tie-breaks on LoadTimestamp, then SourceRowNumber.
type Lineage struct {
	SourceFilename  string    `json:"source_filename"`
	SourceRowNumber int       `json:"source_row_number"`
	BatchDate       time.Time `json:"batch_date"`
	LoadTimestamp   time.Time `json:"load_timestamp"`
}

// CleanRecord is a typed, validated projection of a RawRecord.
type CleanRecord interface {
	Entity() string
	NaturalKey() string
	RecordLineage() Lineage
}

// Merchant is one daily snapshot of a merchant's attributes.
type Merchant struct {
	MerchantID     string          `json:"merchant_id"`
	BusinessName   string          `json:"business_name"`
	IndustryCode   string          `json:"industry_code"`
	StateCode      string          `json:"state_code"`
	AnnualRevenue  decimal.Decimal `json:"annual_revenue"`
	EmployeesCount int             `json:"employees_count"`
	RiskScore      decimal.Decimal `json:"risk_score"`
	OnboardingDate time.Time       `json:"onboarding_date"`
	Lineage        Lineage         `json:"lineage"`
}

func (m Merchant) Entity() string         { return EntityMerchants }
func (m Merchant) NaturalKey() string     { return m.MerchantID }
func (m Merchant) RecordLineage() Lineage { return m.Lineage }

// Attributes renders every dimension attribute as a string so the SCD2
// builder can compare snapshots without caring about field types.
func (m Merchant) Attributes() map[string]string {
	return map[string]string{
		"business_name":   m.BusinessName,
		"industry_code":   m.IndustryCode,
		"state_code":      m.StateCode,
		"annual_revenue":  m.AnnualRevenue.String(),
		"employees_count": intString(m.EmployeesCount),
		"risk_score":      m.RiskScore.String(),
		"onboarding_date": m.OnboardingDate.Format(DateLayout),
	}
}

// Application is a loan application submitted by a merchant.
type Application struct {
	ApplicationID   string          `json:"application_id"`
	MerchantID      string          `json:"merchant_id"`
	ApplicationDate time.Time       `json:"application_date"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	LoanPurpose     string          `json:"loan_purpose"`
	Status          string          `json:"application_status"`
	CreditScore     int             `json:"credit_score"`
	ProcessingTime  time.Time       `json:"processing_time"`
	Lineage         Lineage         `json:"lineage"`
}

func (a Application) Entity() string         { return EntityApplications }
func (a Application) NaturalKey() string     { return a.ApplicationID }
func (a Application) RecordLineage() Lineage { return a.Lineage }

// Disbursement is a funded loan against an approved application.
type Disbursement struct {
	DisbursementID    string          `json:"disbursement_id"`
	ApplicationID     string          `json:"application_id"`
	MerchantID        string          `json:"merchant_id"`
	DisbursedAmount   decimal.Decimal `json:"disbursed_amount"`
	DisbursementDate  time.Time       `json:"disbursement_date"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	TermMonths        int             `json:"term_months"`
	RepaymentSchedule string          `json:"repayment_schedule"`
	Lineage           Lineage         `json:"lineage"`
}

func (d Disbursement) Entity() string         { return EntityDisbursements }
func (d Disbursement) NaturalKey() string     { return d.DisbursementID }
func (d Disbursement) RecordLineage() Lineage { return d.Lineage }

// Payment is a repayment against a disbursement. DaysFromDue is the DPD
// measure: positive means late, negative means early.
type Payment struct {
	PaymentID           string          `json:"payment_id"`
	DisbursementID      string          `json:"disbursement_id"`
	MerchantID          string          `json:"merchant_id"`
	PaymentDate         time.Time       `json:"payment_date"`
	PaymentAmount       decimal.Decimal `json:"payment_amount"`
	PaymentMethod       string          `json:"payment_method"`
	IsScheduled         bool            `json:"is_scheduled"`
	DaysFromDue         int             `json:"days_from_due"`
	ProcessingTimestamp time.Time       `json:"processing_timestamp"`
	Lineage             Lineage         `json:"lineage"`
}

func (p Payment) Entity() string         { return EntityPayments }
func (p Payment) NaturalKey() string     { return p.PaymentID }
func (p Payment) RecordLineage() Lineage { return p.Lineage }
