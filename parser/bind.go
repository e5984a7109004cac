package parser

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"lendflow/models"
)

// bind projects a coerced row onto the concrete record type for the entity.
// An unknown entity reaching this point means the schema file names an
// entity this build does not model, which is a configuration error.
func bind(entity string, row map[string]interface{}, lin models.Lineage) (models.CleanRecord, error) {
	switch entity {
	case models.EntityMerchants:
		return models.Merchant{
			MerchantID:     str(row, "merchant_id"),
			BusinessName:   str(row, "business_name"),
			IndustryCode:   str(row, "industry_code"),
			StateCode:      str(row, "state_code"),
			AnnualRevenue:  dec(row, "annual_revenue"),
			EmployeesCount: integer(row, "employees_count"),
			RiskScore:      dec(row, "risk_score"),
			OnboardingDate: date(row, "onboarding_date"),
			Lineage:        lin,
		}, nil
	case models.EntityApplications:
		return models.Application{
			ApplicationID:   str(row, "application_id"),
			MerchantID:      str(row, "merchant_id"),
			ApplicationDate: date(row, "application_date"),
			RequestedAmount: dec(row, "requested_amount"),
			LoanPurpose:     str(row, "loan_purpose"),
			Status:          str(row, "application_status"),
			CreditScore:     integer(row, "credit_score"),
			ProcessingTime:  date(row, "processing_time"),
			Lineage:         lin,
		}, nil
	case models.EntityDisbursements:
		return models.Disbursement{
			DisbursementID:    str(row, "disbursement_id"),
			ApplicationID:     str(row, "application_id"),
			MerchantID:        str(row, "merchant_id"),
			DisbursedAmount:   dec(row, "disbursed_amount"),
			DisbursementDate:  date(row, "disbursement_date"),
			InterestRate:      dec(row, "interest_rate"),
			TermMonths:        integer(row, "term_months"),
			RepaymentSchedule: str(row, "repayment_schedule"),
			Lineage:           lin,
		}, nil
	case models.EntityPayments:
		return models.Payment{
			PaymentID:           str(row, "payment_id"),
			DisbursementID:      str(row, "disbursement_id"),
			MerchantID:          str(row, "merchant_id"),
			PaymentDate:         date(row, "payment_date"),
			PaymentAmount:       dec(row, "payment_amount"),
			PaymentMethod:       str(row, "payment_method"),
			IsScheduled:         boolean(row, "is_scheduled"),
			DaysFromDue:         integer(row, "days_from_due"),
			ProcessingTimestamp: date(row, "processing_timestamp"),
			Lineage:             lin,
		}, nil
	default:
		return nil, fmt.Errorf("no record binding for entity '%s'", entity)
	}
}

func str(row map[string]interface{}, name string) string {
	v, _ := row[name].(string)
	return v
}

func dec(row map[string]interface{}, name string) decimal.Decimal {
	v, _ := row[name].(decimal.Decimal)
	return v
}

func integer(row map[string]interface{}, name string) int {
	v, _ := row[name].(int64)
	return int(v)
}

func date(row map[string]interface{}, name string) time.Time {
	v, _ := row[name].(time.Time)
	return v
}

func boolean(row map[string]interface{}, name string) bool {
	v, _ := row[name].(bool)
	return v
}
