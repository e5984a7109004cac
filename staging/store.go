package staging

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"lendflow/models"
)

// Quality codes annotated on staged clean rows.
const (
	QualityClean         = "clean"
	QualityDedupSurvivor = "dedup_survivor"
)

// StagedRecord is a clean record persisted to the staging layer together
// with its data-quality annotation.
type StagedRecord struct {
	Record      models.CleanRecord `json:"record"`
	QualityCode string             `json:"quality_code"`
	StagedAt    time.Time          `json:"staged_at"`
}

// Store is the staging area for one entity: a clean store plus a quarantine
// store. Both are additive across batches and idempotent within one: clean
// rows upsert on (natural key, batch date) and quarantine rows upsert on
// (source file, row number), so re-running a batch never duplicates rows.
type Store struct {
	mu         sync.RWMutex
	entity     string
	clean      map[string]StagedRecord
	quarantine map[string]models.InvalidRecord
}

func NewStore(entity string) *Store {
	return &Store{
		entity:     entity,
		clean:      make(map[string]StagedRecord),
		quarantine: make(map[string]models.InvalidRecord),
	}
}

func (s *Store) Entity() string { return s.entity }

func cleanKey(record models.CleanRecord) string {
	return fmt.Sprintf("%s|%s", record.NaturalKey(), record.RecordLineage().BatchDate.Format(models.DateLayout))
}

func quarantineKey(rec models.InvalidRecord) string {
	return fmt.Sprintf("%s|%d", rec.SourceFilename, rec.SourceRowNumber)
}

// UpsertClean stages a clean record, replacing any prior row for the same
// natural key and batch date.
func (s *Store) UpsertClean(record models.CleanRecord, qualityCode string, stagedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clean[cleanKey(record)] = StagedRecord{Record: record, QualityCode: qualityCode, StagedAt: stagedAt}
}

// UpsertQuarantine stages an invalid record, replacing any prior row for the
// same source file and row number.
func (s *Store) UpsertQuarantine(rec models.InvalidRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quarantine[quarantineKey(rec)] = rec
}

// CleanForBatch returns the staged clean records for one batch date, ordered
// by natural key.
func (s *Store) CleanForBatch(batchDate time.Time) []models.CleanRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]models.CleanRecord, 0)
	for _, staged := range s.clean {
		if staged.Record.RecordLineage().BatchDate.Equal(batchDate) {
			records = append(records, staged.Record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].NaturalKey() < records[j].NaturalKey()
	})
	return records
}

// AllClean returns every staged clean record ordered by batch date then
// natural key.
func (s *Store) AllClean() []models.CleanRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]models.CleanRecord, 0, len(s.clean))
	for _, staged := range s.clean {
		records = append(records, staged.Record)
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].RecordLineage().BatchDate, records[j].RecordLineage().BatchDate
		if !a.Equal(b) {
			return a.Before(b)
		}
		return records[i].NaturalKey() < records[j].NaturalKey()
	})
	return records
}

// Quarantined returns every quarantined record for one batch date, ordered
// by source file then row number.
func (s *Store) Quarantined(batchDate time.Time) []models.InvalidRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]models.InvalidRecord, 0)
	for _, rec := range s.quarantine {
		if rec.BatchDate.Equal(batchDate) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].SourceFilename != records[j].SourceFilename {
			return records[i].SourceFilename < records[j].SourceFilename
		}
		return records[i].SourceRowNumber < records[j].SourceRowNumber
	})
	return records
}

// CleanCount returns the number of staged clean rows for a batch date.
func (s *Store) CleanCount(batchDate time.Time) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, staged := range s.clean {
		if staged.Record.RecordLineage().BatchDate.Equal(batchDate) {
			n++
		}
	}
	return n
}
