package processor

import (
	"fmt"
	"sort"

	"lendflow/logger"
	"lendflow/models"
)

// Deduplicator collapses multiple candidate records for the same natural key
// into one canonical record per batch. Tie-break policy: keep the record with
// the latest load timestamp; if tied, keep the one with the highest source
// row number. Losers are quarantined as DUPLICATE.
type Deduplicator struct {
	log *logger.Log
}

// Result holds the survivors and quarantined duplicates of one pass.
// DuplicateCounts maps a surviving natural key to how many candidates it
// displaced.
type Result struct {
	Survivors       []models.CleanRecord
	Duplicates      []models.InvalidRecord
	DuplicateCounts map[string]int
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{log: logger.GetLogger()}
}

// Deduplicate is deterministic and idempotent: re-running on its own
// survivor set yields the same survivors and no duplicates.
func (d *Deduplicator) Deduplicate(entity string, records []models.CleanRecord) Result {
	groups := make(map[string][]models.CleanRecord)
	order := make([]string, 0, len(records))
	for _, record := range records {
		key := record.NaturalKey()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], record)
	}
	sort.Strings(order)

	result := Result{
		Survivors:       make([]models.CleanRecord, 0, len(groups)),
		DuplicateCounts: make(map[string]int),
	}

	for _, key := range order {
		group := groups[key]
		winner := group[0]
		for _, candidate := range group[1:] {
			if supersedes(candidate, winner) {
				winner = candidate
			}
		}
		result.Survivors = append(result.Survivors, winner)

		winnerLin := winner.RecordLineage()
		for _, candidate := range group {
			lin := candidate.RecordLineage()
			if lin == winnerLin {
				continue
			}
			result.Duplicates = append(result.Duplicates, models.InvalidRecord{
				SourceEntity:    entity,
				SourceFilename:  lin.SourceFilename,
				SourceRowNumber: lin.SourceRowNumber,
				BatchDate:       lin.BatchDate,
				Reason:          models.ReasonDuplicate,
				Detail: fmt.Sprintf("superseded by row %d of %s for key '%s'",
					winnerLin.SourceRowNumber, winnerLin.SourceFilename, key),
			})
			result.DuplicateCounts[key]++
		}
	}

	sort.Slice(result.Duplicates, func(i, j int) bool {
		a, b := result.Duplicates[i], result.Duplicates[j]
		if a.SourceFilename != b.SourceFilename {
			return a.SourceFilename < b.SourceFilename
		}
		return a.SourceRowNumber < b.SourceRowNumber
	})

	if len(result.Duplicates) > 0 {
		d.log.WithComponent("deduplicator").WithFields(logger.Fields{
			"entity":     entity,
			"candidates": len(records),
			"survivors":  len(result.Survivors),
			"duplicates": len(result.Duplicates),
		}).Info("collapsed duplicate records")
	}

	return result
}

// supersedes reports whether a beats b under the tie-break policy.
func supersedes(a, b models.CleanRecord) bool {
	la, lb := a.RecordLineage(), b.RecordLineage()
	if !la.LoadTimestamp.Equal(lb.LoadTimestamp) {
		return la.LoadTimestamp.After(lb.LoadTimestamp)
	}
	return la.SourceRowNumber > lb.SourceRowNumber
}
