package staging

import (
	"fmt"
	"time"

	"lendflow/logger"
	"lendflow/models"
	"lendflow/processor"
)

// Materializer persists deduplicated survivors and quarantined rows into the
// per-entity staging stores. Prior staged rows are never deleted or mutated:
// batch N is additive relative to batch N-1, and re-running the same batch
// date is a no-op thanks to the stores' upsert keys.
type Materializer struct {
	stores map[string]*Store
	log    *logger.Log
}

func NewMaterializer(entities []string) *Materializer {
	stores := make(map[string]*Store, len(entities))
	for _, entity := range entities {
		stores[entity] = NewStore(entity)
	}
	return &Materializer{stores: stores, log: logger.GetLogger()}
}

// Store returns the staging store for an entity.
func (m *Materializer) Store(entity string) (*Store, error) {
	store, ok := m.stores[entity]
	if !ok {
		return nil, fmt.Errorf("no staging store for entity '%s'", entity)
	}
	return store, nil
}

// Materialize stages one entity's deduplication result plus any parse-level
// invalid rows for a batch.
func (m *Materializer) Materialize(entity string, batchDate time.Time, result processor.Result, invalids []models.InvalidRecord) error {
	store, err := m.Store(entity)
	if err != nil {
		return err
	}

	stagedAt := time.Now().UTC()
	for _, record := range result.Survivors {
		code := QualityClean
		if result.DuplicateCounts[record.NaturalKey()] > 0 {
			code = QualityDedupSurvivor
		}
		store.UpsertClean(record, code, stagedAt)
	}
	for _, rec := range invalids {
		store.UpsertQuarantine(rec)
	}
	for _, rec := range result.Duplicates {
		store.UpsertQuarantine(rec)
	}

	m.log.WithComponent("staging").WithFields(logger.Fields{
		"entity":      entity,
		"batch_date":  batchDate.Format(models.DateLayout),
		"clean":       len(result.Survivors),
		"quarantined": len(invalids) + len(result.Duplicates),
	}).Info("staged batch")

	return nil
}
