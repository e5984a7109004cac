package writer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"lendflow/models"
)

// memoryFileWriter implements ParquetFile interface for in-memory writing
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{
		buffer: &bytes.Buffer{},
	}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}

// Parquet row layouts for the exported mart tables. Dates render as
// YYYY-MM-DD strings and money as decimal strings so downstream BI tools
// keep exact values.

type dimMerchantRow struct {
	SurrogateKey   int64   `parquet:"name=surrogate_key, type=INT64"`
	MerchantID     string  `parquet:"name=merchant_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	BusinessName   string  `parquet:"name=business_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	IndustryCode   string  `parquet:"name=industry_code, type=BYTE_ARRAY, convertedtype=UTF8"`
	StateCode      string  `parquet:"name=state_code, type=BYTE_ARRAY, convertedtype=UTF8"`
	AnnualRevenue  string  `parquet:"name=annual_revenue, type=BYTE_ARRAY, convertedtype=UTF8"`
	EmployeesCount int32   `parquet:"name=employees_count, type=INT32"`
	RiskScore      string  `parquet:"name=risk_score, type=BYTE_ARRAY, convertedtype=UTF8"`
	OnboardingDate string  `parquet:"name=onboarding_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	EffectiveFrom  string  `parquet:"name=effective_from, type=BYTE_ARRAY, convertedtype=UTF8"`
	EffectiveTo    *string `parquet:"name=effective_to, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	IsCurrent      bool    `parquet:"name=is_current, type=BOOLEAN"`
	BatchDate      string  `parquet:"name=batch_date, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type fctApplicationRow struct {
	ApplicationID   string `parquet:"name=application_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	MerchantID      string `parquet:"name=merchant_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	MerchantSK      *int64 `parquet:"name=merchant_sk, type=INT64, repetitiontype=OPTIONAL"`
	ApplicationDate string `parquet:"name=application_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	RequestedAmount string `parquet:"name=requested_amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	LoanPurpose     string `parquet:"name=loan_purpose, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status          string `parquet:"name=application_status, type=BYTE_ARRAY, convertedtype=UTF8"`
	CreditScore     int32  `parquet:"name=credit_score, type=INT32"`
	BatchDate       string `parquet:"name=batch_date, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type fctDisbursementRow struct {
	DisbursementID    string `parquet:"name=disbursement_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ApplicationID     string `parquet:"name=application_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	MerchantID        string `parquet:"name=merchant_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	MerchantSK        *int64 `parquet:"name=merchant_sk, type=INT64, repetitiontype=OPTIONAL"`
	DisbursedAmount   string `parquet:"name=disbursed_amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	InterestRate      string `parquet:"name=interest_rate, type=BYTE_ARRAY, convertedtype=UTF8"`
	TermMonths        int32  `parquet:"name=term_months, type=INT32"`
	RepaymentSchedule string `parquet:"name=repayment_schedule, type=BYTE_ARRAY, convertedtype=UTF8"`
	DisbursementDate  string `parquet:"name=disbursement_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	BatchDate         string `parquet:"name=batch_date, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type fctPaymentRow struct {
	PaymentID      string `parquet:"name=payment_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	DisbursementID string `parquet:"name=disbursement_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	MerchantID     string `parquet:"name=merchant_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	MerchantSK     *int64 `parquet:"name=merchant_sk, type=INT64, repetitiontype=OPTIONAL"`
	PaymentDate    string `parquet:"name=payment_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	PaymentAmount  string `parquet:"name=payment_amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	PaymentMethod  string `parquet:"name=payment_method, type=BYTE_ARRAY, convertedtype=UTF8"`
	IsScheduled    bool   `parquet:"name=is_scheduled, type=BOOLEAN"`
	DaysFromDue    int32  `parquet:"name=days_from_due, type=INT32"`
	BatchDate      string `parquet:"name=batch_date, type=BYTE_ARRAY, convertedtype=UTF8"`
}

type quarantineRow struct {
	SourceEntity    string `parquet:"name=source_entity, type=BYTE_ARRAY, convertedtype=UTF8"`
	SourceFilename  string `parquet:"name=source_filename, type=BYTE_ARRAY, convertedtype=UTF8"`
	SourceRowNumber int32  `parquet:"name=source_row_number, type=INT32"`
	BatchDate       string `parquet:"name=batch_date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Reason          string `parquet:"name=reason_code, type=BYTE_ARRAY, convertedtype=UTF8"`
	Field           string `parquet:"name=field, type=BYTE_ARRAY, convertedtype=UTF8"`
	Detail          string `parquet:"name=detail, type=BYTE_ARRAY, convertedtype=UTF8"`
}

func createParquetFile(sample interface{}, rows []interface{}) ([]byte, error) {
	fw := newMemoryFileWriter()

	pw, err := writer.NewParquetWriter(fw, sample, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			return nil, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	return fw.Bytes(), nil
}

func dateString(t time.Time) string {
	return t.Format(models.DateLayout)
}

func merchantDimParquet(versions []models.MerchantVersion) ([]byte, error) {
	rows := make([]interface{}, 0, len(versions))
	for _, v := range versions {
		row := dimMerchantRow{
			SurrogateKey:   v.SurrogateKey,
			MerchantID:     v.MerchantID,
			BusinessName:   v.BusinessName,
			IndustryCode:   v.IndustryCode,
			StateCode:      v.StateCode,
			AnnualRevenue:  v.AnnualRevenue.String(),
			EmployeesCount: int32(v.EmployeesCount),
			RiskScore:      v.RiskScore.String(),
			OnboardingDate: dateString(v.OnboardingDate),
			EffectiveFrom:  dateString(v.EffectiveFrom),
			IsCurrent:      v.IsCurrent,
			BatchDate:      dateString(v.BatchDate),
		}
		if v.EffectiveTo != nil {
			to := dateString(*v.EffectiveTo)
			row.EffectiveTo = &to
		}
		rows = append(rows, row)
	}
	return createParquetFile(new(dimMerchantRow), rows)
}

func applicationFactParquet(facts []models.ApplicationFact) ([]byte, error) {
	rows := make([]interface{}, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, fctApplicationRow{
			ApplicationID:   f.ApplicationID,
			MerchantID:      f.MerchantID,
			MerchantSK:      f.MerchantSK,
			ApplicationDate: dateString(f.ApplicationDate),
			RequestedAmount: f.RequestedAmount.String(),
			LoanPurpose:     f.LoanPurpose,
			Status:          f.Status,
			CreditScore:     int32(f.CreditScore),
			BatchDate:       dateString(f.BatchDate),
		})
	}
	return createParquetFile(new(fctApplicationRow), rows)
}

func disbursementFactParquet(facts []models.DisbursementFact) ([]byte, error) {
	rows := make([]interface{}, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, fctDisbursementRow{
			DisbursementID:    f.DisbursementID,
			ApplicationID:     f.ApplicationID,
			MerchantID:        f.MerchantID,
			MerchantSK:        f.MerchantSK,
			DisbursedAmount:   f.DisbursedAmount.String(),
			InterestRate:      f.InterestRate.String(),
			TermMonths:        int32(f.TermMonths),
			RepaymentSchedule: f.RepaymentSchedule,
			DisbursementDate:  dateString(f.DisbursementDate),
			BatchDate:         dateString(f.BatchDate),
		})
	}
	return createParquetFile(new(fctDisbursementRow), rows)
}

func paymentFactParquet(facts []models.PaymentFact) ([]byte, error) {
	rows := make([]interface{}, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, fctPaymentRow{
			PaymentID:      f.PaymentID,
			DisbursementID: f.DisbursementID,
			MerchantID:     f.MerchantID,
			MerchantSK:     f.MerchantSK,
			PaymentDate:    dateString(f.PaymentDate),
			PaymentAmount:  f.PaymentAmount.String(),
			PaymentMethod:  f.PaymentMethod,
			IsScheduled:    f.IsScheduled,
			DaysFromDue:    int32(f.DaysFromDue),
			BatchDate:      dateString(f.BatchDate),
		})
	}
	return createParquetFile(new(fctPaymentRow), rows)
}

func quarantineParquet(records []models.InvalidRecord) ([]byte, error) {
	rows := make([]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, quarantineRow{
			SourceEntity:    r.SourceEntity,
			SourceRowNumber: int32(r.SourceRowNumber),
			SourceFilename:  r.SourceFilename,
			BatchDate:       dateString(r.BatchDate),
			Reason:          string(r.Reason),
			Field:           r.Field,
			Detail:          r.Detail,
		})
	}
	return createParquetFile(new(quarantineRow), rows)
}
