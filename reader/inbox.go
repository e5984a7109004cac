package reader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"lendflow/config"
	"lendflow/logger"
	"lendflow/models"
)

// InboxReader adapts the raw ingestion collaborator: a directory of daily
// CSV drops named <entity>_<YYYY-MM-DD>.csv. The batch date comes from the
// filename suffix and is trusted as given. Rows are emitted untyped with
// their full lineage; header detection is the parser's job downstream.
type InboxReader struct {
	cfg *config.Config
	log *logger.Log
}

func NewInboxReader(cfg *config.Config) *InboxReader {
	return &InboxReader{cfg: cfg, log: logger.GetLogger()}
}

// ReadEntity loads one entity's file for a batch date. A missing file is a
// late drop, not an error: it returns no records so the run can proceed for
// the other entities. Transient read failures are retried with backoff up to
// the configured attempt count.
func (r *InboxReader) ReadEntity(ctx context.Context, entity string, batchDate time.Time) ([]models.RawRecord, error) {
	filename := fmt.Sprintf("%s_%s.csv", entity, batchDate.Format(models.DateLayout))
	path := filepath.Join(r.cfg.Reader.InboxDir, filename)

	log := r.log.WithComponent("inbox_reader").WithFields(logger.Fields{
		"entity":     entity,
		"batch_date": batchDate.Format(models.DateLayout),
		"file":       filename,
	})

	var records []models.RawRecord
	var lastErr error

	attempts := r.cfg.Reader.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := r.cfg.Reader.Retry.BaseDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		records, lastErr = r.readFile(path, entity, filename, batchDate)
		if lastErr == nil {
			break
		}
		if os.IsNotExist(lastErr) {
			log.Warn("no file dropped for batch date; skipping entity")
			return nil, nil
		}
		log.WithError(lastErr).WithFields(logger.Fields{"attempt": attempt}).Warn("failed to read inbox file")
		if attempt == attempts {
			return nil, fmt.Errorf("failed to read %s after %d attempts: %w", filename, attempts, lastErr)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= time.Duration(max(r.cfg.Reader.Retry.BackoffMultiplier, 1))
		if r.cfg.Reader.Retry.MaxDelay > 0 && delay > r.cfg.Reader.Retry.MaxDelay {
			delay = r.cfg.Reader.Retry.MaxDelay
		}
	}

	log.WithFields(logger.Fields{"rows": len(records)}).Info("read inbox file")
	return records, nil
}

func (r *InboxReader) readFile(path, entity, filename string, batchDate time.Time) ([]models.RawRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	loadTimestamp := info.ModTime().UTC()

	reader := csv.NewReader(file)
	// Field counts vary when a header is missing or a row is malformed;
	// the parser validates counts against the schema.
	reader.FieldsPerRecord = -1

	var records []models.RawRecord
	rowNumber := 0
	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", rowNumber+1, err)
		}
		rowNumber++
		records = append(records, models.RawRecord{
			SourceEntity:    entity,
			SourceFilename:  filename,
			SourceRowNumber: rowNumber,
			BatchDate:       batchDate,
			LoadTimestamp:   loadTimestamp,
			Fields:          fields,
		})
	}
	return records, nil
}
