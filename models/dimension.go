package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MerchantVersion is one row of the SCD Type-2 merchant dimension. The
// surrogate key is immutable once assigned; EffectiveTo is nil while the
// version is the open (current) one.
type MerchantVersion struct {
	SurrogateKey   int64           `json:"surrogate_key"`
	MerchantID     string          `json:"merchant_id"`
	BusinessName   string          `json:"business_name"`
	IndustryCode   string          `json:"industry_code"`
	StateCode      string          `json:"state_code"`
	AnnualRevenue  decimal.Decimal `json:"annual_revenue"`
	EmployeesCount int             `json:"employees_count"`
	RiskScore      decimal.Decimal `json:"risk_score"`
	OnboardingDate time.Time       `json:"onboarding_date"`
	EffectiveFrom  time.Time       `json:"effective_from"`
	EffectiveTo    *time.Time      `json:"effective_to,omitempty"`
	IsCurrent      bool            `json:"is_current"`
	BatchDate      time.Time       `json:"batch_date"`
}

// Attributes mirrors Merchant.Attributes for change detection against a
// snapshot.
func (v MerchantVersion) Attributes() map[string]string {
	return map[string]string{
		"business_name":   v.BusinessName,
		"industry_code":   v.IndustryCode,
		"state_code":      v.StateCode,
		"annual_revenue":  v.AnnualRevenue.String(),
		"employees_count": intString(v.EmployeesCount),
		"risk_score":      v.RiskScore.String(),
		"onboarding_date": v.OnboardingDate.Format(DateLayout),
	}
}

// ContainsDate reports whether the version's [EffectiveFrom, EffectiveTo)
// validity interval contains d.
func (v MerchantVersion) ContainsDate(d time.Time) bool {
	if d.Before(v.EffectiveFrom) {
		return false
	}
	if v.EffectiveTo == nil {
		return true
	}
	return d.Before(*v.EffectiveTo)
}
