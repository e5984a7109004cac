package writer

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	appconfig "lendflow/config"
	"lendflow/logger"
	"lendflow/models"
)

// ExportSnapshot is the full table state handed to the exporter after a
// batch run: the dimension, the three fact tables and the quarantine rows
// for the batch.
type ExportSnapshot struct {
	BatchDate     time.Time
	Merchants     []models.MerchantVersion
	Applications  []models.ApplicationFact
	Disbursements []models.DisbursementFact
	Payments      []models.PaymentFact
	Quarantine    []models.InvalidRecord
}

// MartExporter renders the mart tables as parquet files in memory and
// uploads them to S3 under hive-style partition keys. Object keys are
// deterministic per table and batch date so re-running a batch overwrites
// rather than duplicates.
type MartExporter struct {
	cfg      *appconfig.Config
	s3Client *s3.Client
	limiter  *rate.Limiter
	log      *logger.Log
}

func NewMartExporter(cfg *appconfig.Config) (*MartExporter, error) {
	log := logger.GetLogger()

	ctx := context.Background()

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})

	uploadsPerSecond := cfg.Storage.S3.UploadsPerSecond
	if uploadsPerSecond <= 0 {
		uploadsPerSecond = 5
	}

	exporter := &MartExporter{
		cfg:      cfg,
		s3Client: s3Client,
		limiter:  rate.NewLimiter(rate.Limit(uploadsPerSecond), 1),
		log:      log,
	}

	log.WithComponent("mart_exporter").WithFields(logger.Fields{
		"bucket":     cfg.Storage.S3.Bucket,
		"region":     cfg.Storage.S3.Region,
		"endpoint":   cfg.Storage.S3.Endpoint,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("mart exporter initialized")

	return exporter, nil
}

// Export uploads every mart table for one batch. Failures per table are
// collected so one bad upload does not hide the rest.
func (e *MartExporter) Export(ctx context.Context, snap ExportSnapshot) error {
	exportID := uuid.New().String()
	log := e.log.WithComponent("mart_exporter").WithFields(logger.Fields{
		"export_id":  exportID,
		"batch_date": snap.BatchDate.Format(models.DateLayout),
	})
	log.Info("exporting mart tables")

	tables := []struct {
		name  string
		build func() ([]byte, error)
		rows  int
	}{
		{"dim_merchant", func() ([]byte, error) { return merchantDimParquet(snap.Merchants) }, len(snap.Merchants)},
		{"fct_application", func() ([]byte, error) { return applicationFactParquet(snap.Applications) }, len(snap.Applications)},
		{"fct_disbursement", func() ([]byte, error) { return disbursementFactParquet(snap.Disbursements) }, len(snap.Disbursements)},
		{"fct_payment", func() ([]byte, error) { return paymentFactParquet(snap.Payments) }, len(snap.Payments)},
		{"dq_quarantine", func() ([]byte, error) { return quarantineParquet(snap.Quarantine) }, len(snap.Quarantine)},
	}

	var firstErr error
	for _, table := range tables {
		data, err := table.build()
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"table": table.name}).Error("failed to render parquet table")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		key := e.objectKey(table.name, snap.BatchDate)
		if err := e.upload(ctx, key, data); err != nil {
			log.WithError(err).
				WithEnv("S3_BUCKET").
				WithFields(logger.Fields{"table": table.name, "s3_key": key}).
				Error("failed to upload mart table")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		log.WithFields(logger.Fields{
			"table":     table.name,
			"s3_key":    key,
			"rows":      table.rows,
			"file_size": len(data),
		}).Info("mart table uploaded")
	}

	return firstErr
}

func (e *MartExporter) objectKey(table string, batchDate time.Time) string {
	key := filepath.Join(
		"marts",
		fmt.Sprintf("table=%s", table),
		fmt.Sprintf("batch_date=%s", batchDate.Format(models.DateLayout)),
		fmt.Sprintf("%s_%s.parquet", table, batchDate.Format("20060102")),
	)
	return filepath.ToSlash(key)
}

func (e *MartExporter) upload(ctx context.Context, key string, data []byte) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(e.cfg.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":     "parquet",
			"lendflow-version": e.cfg.Lendflow.Version,
		},
	}

	if _, err := e.s3Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", e.cfg.Storage.S3.Bucket, err)
	}
	return nil
}
