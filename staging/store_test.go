package staging

import (
	"testing"
	"time"

	"lendflow/models"
	"lendflow/processor"
)

var (
	batchOct1 = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	batchOct2 = time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC)
)

func stagedMerchant(id string, batchDate time.Time) models.Merchant {
	return models.Merchant{
		MerchantID:   id,
		BusinessName: "Acme Bakery",
		Lineage: models.Lineage{
			SourceFilename:  "merchants_" + batchDate.Format(models.DateLayout) + ".csv",
			SourceRowNumber: 2,
			BatchDate:       batchDate,
			LoadTimestamp:   batchDate.Add(6 * time.Hour),
		},
	}
}

func TestStoreUpsertCleanIdempotent(t *testing.T) {
	store := NewStore(models.EntityMerchants)

	rec := stagedMerchant("M-001", batchOct1)
	store.UpsertClean(rec, QualityClean, time.Now())
	store.UpsertClean(rec, QualityClean, time.Now())

	if got := store.CleanCount(batchOct1); got != 1 {
		t.Errorf("CleanCount = %d, want 1 after re-staging the same row", got)
	}
}

func TestStoreKeepsBatchesSeparate(t *testing.T) {
	store := NewStore(models.EntityMerchants)

	store.UpsertClean(stagedMerchant("M-001", batchOct1), QualityClean, time.Now())
	store.UpsertClean(stagedMerchant("M-001", batchOct2), QualityClean, time.Now())
	store.UpsertClean(stagedMerchant("M-002", batchOct2), QualityClean, time.Now())

	if got := store.CleanCount(batchOct1); got != 1 {
		t.Errorf("batch 1 count = %d, want 1", got)
	}
	if got := store.CleanCount(batchOct2); got != 2 {
		t.Errorf("batch 2 count = %d, want 2", got)
	}

	records := store.CleanForBatch(batchOct2)
	if len(records) != 2 || records[0].NaturalKey() != "M-001" || records[1].NaturalKey() != "M-002" {
		t.Errorf("CleanForBatch not ordered by natural key: %+v", records)
	}

	all := store.AllClean()
	if len(all) != 3 {
		t.Errorf("AllClean = %d rows, want 3", len(all))
	}
	if !all[0].RecordLineage().BatchDate.Equal(batchOct1) {
		t.Error("AllClean not ordered by batch date first")
	}
}

func TestStoreQuarantineUpsert(t *testing.T) {
	store := NewStore(models.EntityMerchants)

	rec := models.InvalidRecord{
		SourceEntity:    models.EntityMerchants,
		SourceFilename:  "merchants_2025-10-01.csv",
		SourceRowNumber: 5,
		BatchDate:       batchOct1,
		Reason:          models.ReasonBadNumeric,
		Field:           "annual_revenue",
	}
	store.UpsertQuarantine(rec)
	store.UpsertQuarantine(rec)

	quarantined := store.Quarantined(batchOct1)
	if len(quarantined) != 1 {
		t.Fatalf("Quarantined = %d rows, want 1 after re-staging", len(quarantined))
	}
	if quarantined[0].Reason != models.ReasonBadNumeric {
		t.Errorf("unexpected reason: %s", quarantined[0].Reason)
	}
}

func TestMaterializeAnnotatesDedupSurvivors(t *testing.T) {
	m := NewMaterializer([]string{models.EntityMerchants})

	survivor := stagedMerchant("M-001", batchOct1)
	result := processor.Result{
		Survivors: []models.CleanRecord{survivor, stagedMerchant("M-002", batchOct1)},
		Duplicates: []models.InvalidRecord{{
			SourceEntity:    models.EntityMerchants,
			SourceFilename:  "merchants_2025-10-01.csv",
			SourceRowNumber: 9,
			BatchDate:       batchOct1,
			Reason:          models.ReasonDuplicate,
		}},
		DuplicateCounts: map[string]int{"M-001": 1},
	}

	if err := m.Materialize(models.EntityMerchants, batchOct1, result, nil); err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}

	store, err := m.Store(models.EntityMerchants)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if got := store.CleanCount(batchOct1); got != 2 {
		t.Errorf("clean count = %d, want 2", got)
	}
	if got := len(store.Quarantined(batchOct1)); got != 1 {
		t.Errorf("quarantine count = %d, want 1", got)
	}

	if _, err := m.Store("loans"); err == nil {
		t.Error("expected error for unknown entity store")
	}
}
