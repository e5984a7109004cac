package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"lendflow/config"
	"lendflow/dimension"
	"lendflow/facts"
	"lendflow/logger"
	"lendflow/models"
	"lendflow/parser"
	"lendflow/processor"
	"lendflow/reconcile"
	"lendflow/staging"
	"lendflow/writer"
)

// RawSource is the raw ingestion collaborator: it delivers one untyped
// record stream per source entity per batch date.
type RawSource interface {
	ReadEntity(ctx context.Context, entity string, batchDate time.Time) ([]models.RawRecord, error)
}

// Exporter publishes finished mart tables to the reporting collaborator.
type Exporter interface {
	Export(ctx context.Context, snap writer.ExportSnapshot) error
}

// Pipeline runs one batch date end-to-end: RAW -> STG -> CORE -> MARTS.
// Every layer is idempotent for a given batch date, so the standard recovery
// path for any failure is re-running the whole batch.
type Pipeline struct {
	cfg        *config.Config
	schemas    *config.Schemas
	source     RawSource
	parser     *parser.Parser
	dedup      *processor.Deduplicator
	staging    *staging.Materializer
	dimension  *dimension.Builder
	facts      *facts.Builder
	reconciler *reconcile.Reconciler
	exporter   Exporter
	log        *logger.Log
}

// New wires a pipeline. Configuration problems (missing entity schema,
// missing tracked-attribute list) surface here, before any writes.
func New(cfg *config.Config, schemas *config.Schemas, source RawSource, exporter Exporter) (*Pipeline, error) {
	for _, entity := range models.Entities {
		if _, err := schemas.Entity(entity); err != nil {
			return nil, err
		}
	}

	tracked, err := schemas.TrackedAttributes(models.EntityMerchants)
	if err != nil {
		return nil, err
	}
	dimBuilder, err := dimension.NewBuilder(tracked)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:        cfg,
		schemas:    schemas,
		source:     source,
		parser:     parser.New(schemas),
		dedup:      processor.NewDeduplicator(),
		staging:    staging.NewMaterializer(models.Entities),
		dimension:  dimBuilder,
		facts:      facts.NewBuilder(cfg.Facts, dimBuilder),
		reconciler: reconcile.NewReconciler(cfg.Facts.DelinquencyDPDThreshold),
		exporter:   exporter,
		log:        logger.GetLogger(),
	}, nil
}

// Dimension exposes the dimension builder for reporting reads.
func (p *Pipeline) Dimension() *dimension.Builder { return p.dimension }

// Facts exposes the fact builder for reporting reads.
func (p *Pipeline) Facts() *facts.Builder { return p.facts }

// Staging exposes the staging materializer for reporting reads.
func (p *Pipeline) Staging() *staging.Materializer { return p.staging }

// Run processes one batch date. Entity staging runs in parallel; the fact
// builders wait for the merchant dimension commit (a read-after-write
// ordering dependency, not a lock).
func (p *Pipeline) Run(ctx context.Context, batchDate time.Time) (*models.RunSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Pipeline.RunTimeout)
	defer cancel()

	summary := &models.RunSummary{
		RunID:     uuid.New().String(),
		BatchDate: batchDate,
		StartedAt: time.Now().UTC(),
		Entities:  make(map[string]models.EntityCounts),
	}

	log := p.log.WithComponent("pipeline").WithFields(logger.Fields{
		"run_id":     summary.RunID,
		"batch_date": batchDate.Format(models.DateLayout),
	})
	log.Info("starting pipeline run")

	// STG: the four entity pipelines write to disjoint stores.
	var wg sync.WaitGroup
	var mu sync.Mutex
	var stageErr error

	for _, entity := range models.Entities {
		wg.Add(1)
		go func(entity string) {
			defer wg.Done()
			counts, err := p.stageEntity(ctx, entity, batchDate)
			mu.Lock()
			defer mu.Unlock()
			if err != nil && stageErr == nil {
				stageErr = fmt.Errorf("staging %s: %w", entity, err)
			}
			summary.Entities[entity] = counts
		}(entity)
	}
	wg.Wait()

	if stageErr != nil {
		return p.fail(summary, stageErr)
	}

	// CORE: merchant dimension first.
	merchantStore, err := p.staging.Store(models.EntityMerchants)
	if err != nil {
		return p.fail(summary, err)
	}
	snapshots := merchantRecords(merchantStore.CleanForBatch(batchDate))
	stats, rejected := p.dimension.ApplyBatch(snapshots)
	for _, rec := range rejected {
		merchantStore.UpsertQuarantine(rec)
	}
	summary.DimensionInserted = stats.Inserted + stats.Versioned
	summary.DimensionClosed = stats.Versioned
	summary.DimensionRejected = stats.Rejected

	log.WithFields(logger.Fields{
		"inserted":    stats.Inserted,
		"versioned":   stats.Versioned,
		"unchanged":   stats.Unchanged,
		"overwritten": stats.Overwritten,
		"rejected":    stats.Rejected,
	}).Info("dimension commit finished")

	// Facts only start after the dimension commit above.
	if err := p.buildFacts(ctx, batchDate); err != nil {
		return p.fail(summary, err)
	}

	summary.Referential = p.reconciler.Reconcile(
		batchDate,
		p.facts.Applications(),
		p.facts.Disbursements(),
		p.facts.Payments(),
	)

	if p.exporter != nil {
		snap := writer.ExportSnapshot{
			BatchDate:     batchDate,
			Merchants:     p.dimension.Versions(),
			Applications:  p.facts.Applications(),
			Disbursements: p.facts.Disbursements(),
			Payments:      p.facts.Payments(),
			Quarantine:    p.quarantineForBatch(batchDate),
		}
		if err := p.exporter.Export(ctx, snap); err != nil {
			return p.fail(summary, fmt.Errorf("mart export: %w", err))
		}
	}

	summary.FinishedAt = time.Now().UTC()
	p.logSummary(summary)
	return summary, nil
}

// stageEntity runs RAW -> parse -> dedup -> staging for one entity.
func (p *Pipeline) stageEntity(ctx context.Context, entity string, batchDate time.Time) (models.EntityCounts, error) {
	var counts models.EntityCounts

	rawRecords, err := p.source.ReadEntity(ctx, entity, batchDate)
	if err != nil {
		return counts, err
	}

	var cleans []models.CleanRecord
	var invalids []models.InvalidRecord

	for i, raw := range rawRecords {
		// The feed omits header rows on some days; only the first row
		// of a file can be one.
		if i == 0 && p.parser.IsHeaderRow(raw) {
			continue
		}
		counts.Raw++

		record, invalid, err := p.parser.Parse(raw)
		if err != nil {
			return counts, err
		}
		if invalid != nil {
			invalids = append(invalids, *invalid)
			continue
		}
		cleans = append(cleans, record)
	}

	result := p.dedup.Deduplicate(entity, cleans)
	if err := p.staging.Materialize(entity, batchDate, result, invalids); err != nil {
		return counts, err
	}

	counts.Clean = len(result.Survivors)
	counts.Duplicates = len(result.Duplicates)
	counts.Invalid = len(invalids) + len(result.Duplicates)
	return counts, nil
}

// buildFacts materializes the three fact tables from this batch's staged
// survivors. The tables are disjoint, so the builders run in parallel.
func (p *Pipeline) buildFacts(ctx context.Context, batchDate time.Time) error {
	type job struct {
		entity string
		build  func([]models.CleanRecord) int
	}
	jobs := []job{
		{models.EntityApplications, func(records []models.CleanRecord) int {
			return p.facts.BuildApplications(applicationRecords(records))
		}},
		{models.EntityDisbursements, func(records []models.CleanRecord) int {
			return p.facts.BuildDisbursements(disbursementRecords(records))
		}},
		{models.EntityPayments, func(records []models.CleanRecord) int {
			return p.facts.BuildPayments(paymentRecords(records))
		}},
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			store, err := p.staging.Store(j.entity)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			written := j.build(store.CleanForBatch(batchDate))
			p.log.WithComponent("fact_builder").WithFields(logger.Fields{
				"entity":     j.entity,
				"batch_date": batchDate.Format(models.DateLayout),
				"rows":       written,
			}).Info("fact table updated")
		}(j)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

func (p *Pipeline) quarantineForBatch(batchDate time.Time) []models.InvalidRecord {
	var all []models.InvalidRecord
	for _, entity := range models.Entities {
		store, err := p.staging.Store(entity)
		if err != nil {
			continue
		}
		all = append(all, store.Quarantined(batchDate)...)
	}
	return all
}

func (p *Pipeline) fail(summary *models.RunSummary, err error) (*models.RunSummary, error) {
	summary.Failed = true
	summary.FailureReason = err.Error()
	summary.FinishedAt = time.Now().UTC()
	p.log.WithComponent("pipeline").WithError(err).WithFields(logger.Fields{
		"run_id": summary.RunID,
	}).Error("pipeline run failed")
	return summary, err
}

func (p *Pipeline) logSummary(summary *models.RunSummary) {
	log := p.log.WithComponent("pipeline")
	for entity, counts := range summary.Entities {
		log.LogMetric("pipeline", "rows_clean", counts.Clean, "counter", logger.Fields{"entity": entity})
		log.LogMetric("pipeline", "rows_quarantined", counts.Invalid, "counter", logger.Fields{"entity": entity})
	}
	log.LogMetric("pipeline", "orphan_facts",
		summary.Referential.OrphanDisbursements+summary.Referential.OrphanPayments, "counter", logger.Fields{})

	log.WithFields(logger.Fields{
		"run_id":               summary.RunID,
		"batch_date":           summary.BatchDate.Format(models.DateLayout),
		"duration_ms":          summary.FinishedAt.Sub(summary.StartedAt).Milliseconds(),
		"entities":             summary.Entities,
		"dimension_inserted":   summary.DimensionInserted,
		"dimension_closed":     summary.DimensionClosed,
		"dimension_rejected":   summary.DimensionRejected,
		"orphan_disbursements": summary.Referential.OrphanDisbursements,
		"orphan_payments":      summary.Referential.OrphanPayments,
	}).Info("pipeline run finished")
}

func merchantRecords(records []models.CleanRecord) []models.Merchant {
	out := make([]models.Merchant, 0, len(records))
	for _, record := range records {
		if m, ok := record.(models.Merchant); ok {
			out = append(out, m)
		}
	}
	return out
}

func applicationRecords(records []models.CleanRecord) []models.Application {
	out := make([]models.Application, 0, len(records))
	for _, record := range records {
		if a, ok := record.(models.Application); ok {
			out = append(out, a)
		}
	}
	return out
}

func disbursementRecords(records []models.CleanRecord) []models.Disbursement {
	out := make([]models.Disbursement, 0, len(records))
	for _, record := range records {
		if d, ok := record.(models.Disbursement); ok {
			out = append(out, d)
		}
	}
	return out
}

func paymentRecords(records []models.CleanRecord) []models.Payment {
	out := make([]models.Payment, 0, len(records))
	for _, record := range records {
		if p, ok := record.(models.Payment); ok {
			out = append(out, p)
		}
	}
	return out
}
