package dimension

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"lendflow/logger"
	"lendflow/models"
)

// OutOfOrderBatchError reports a merchant snapshot whose batch date precedes
// the open version's effective_from. Accepting it would require retroactive
// interval splitting, which is unsupported; the snapshot is rejected and the
// run continues for other merchants.
type OutOfOrderBatchError struct {
	MerchantID    string
	BatchDate     time.Time
	EffectiveFrom time.Time
}

func (e *OutOfOrderBatchError) Error() string {
	return fmt.Sprintf("out-of-order batch for merchant '%s': batch date %s precedes current effective_from %s",
		e.MerchantID,
		e.BatchDate.Format(models.DateLayout),
		e.EffectiveFrom.Format(models.DateLayout))
}

// Change describes what one snapshot did to a merchant's version chain.
type Change int

const (
	// ChangeNone means the snapshot matched the open version on every
	// tracked attribute.
	ChangeNone Change = iota
	// ChangeInserted means the merchant had no version and one was opened.
	ChangeInserted
	// ChangeVersioned means the open version was closed and a new one
	// opened because a tracked attribute changed.
	ChangeVersioned
	// ChangeOverwritten means only untracked attributes differed and the
	// open version was updated in place (SCD1), or a same-day correction
	// rewrote the open version.
	ChangeOverwritten
)

// Builder maintains the SCD Type-2 merchant dimension as an indexed map of
// per-merchant version chains. Updates are serialized by the builder's lock;
// chains for different merchants never interfere.
type Builder struct {
	mu      sync.Mutex
	chains  map[string][]*models.MerchantVersion
	nextSK  int64
	tracked map[string]bool
	log     *logger.Log
}

// BatchStats accumulates the outcome of applying one batch of snapshots.
type BatchStats struct {
	Inserted    int
	Versioned   int
	Unchanged   int
	Overwritten int
	Rejected    int
}

// NewBuilder creates a dimension builder tracking the named attributes for
// SCD2 change detection. The tracked list is configuration; it must not be
// empty.
func NewBuilder(trackedAttributes []string) (*Builder, error) {
	if len(trackedAttributes) == 0 {
		return nil, fmt.Errorf("tracked attribute list must not be empty")
	}
	tracked := make(map[string]bool, len(trackedAttributes))
	for _, attr := range trackedAttributes {
		tracked[attr] = true
	}
	return &Builder{
		chains:  make(map[string][]*models.MerchantVersion),
		nextSK:  1,
		tracked: tracked,
		log:     logger.GetLogger(),
	}, nil
}

// Apply merges one merchant snapshot into the dimension.
func (b *Builder) Apply(snapshot models.Merchant) (Change, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	batchDate := snapshot.Lineage.BatchDate
	chain := b.chains[snapshot.MerchantID]

	if len(chain) == 0 {
		b.open(snapshot, batchDate)
		return ChangeInserted, nil
	}

	current := chain[len(chain)-1]

	if batchDate.Before(current.EffectiveFrom) {
		return ChangeNone, &OutOfOrderBatchError{
			MerchantID:    snapshot.MerchantID,
			BatchDate:     batchDate,
			EffectiveFrom: current.EffectiveFrom,
		}
	}

	trackedChanged, untrackedChanged := b.diff(current, snapshot)

	if !trackedChanged && !untrackedChanged {
		return ChangeNone, nil
	}

	// A re-drop for the open version's own effective date is a correction:
	// rewrite the row in place rather than open a zero-length interval.
	if !trackedChanged || batchDate.Equal(current.EffectiveFrom) {
		b.overwrite(current, snapshot, batchDate)
		return ChangeOverwritten, nil
	}

	current.EffectiveTo = &batchDate
	current.IsCurrent = false
	b.open(snapshot, batchDate)
	return ChangeVersioned, nil
}

// ApplyBatch applies a batch of snapshots, quarantining out-of-order ones.
// Snapshots are applied in natural-key order for determinism.
func (b *Builder) ApplyBatch(snapshots []models.Merchant) (BatchStats, []models.InvalidRecord) {
	ordered := make([]models.Merchant, len(snapshots))
	copy(ordered, snapshots)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].MerchantID < ordered[j].MerchantID
	})

	var stats BatchStats
	var rejected []models.InvalidRecord

	for _, snapshot := range ordered {
		change, err := b.Apply(snapshot)
		if err != nil {
			stats.Rejected++
			b.log.WithComponent("scd2_builder").WithError(err).WithFields(logger.Fields{
				"merchant_id": snapshot.MerchantID,
				"batch_date":  snapshot.Lineage.BatchDate.Format(models.DateLayout),
			}).Error("rejected out-of-order merchant snapshot")
			rejected = append(rejected, models.InvalidRecord{
				SourceEntity:    models.EntityMerchants,
				SourceFilename:  snapshot.Lineage.SourceFilename,
				SourceRowNumber: snapshot.Lineage.SourceRowNumber,
				BatchDate:       snapshot.Lineage.BatchDate,
				Reason:          models.ReasonOutOfOrderBatch,
				Detail:          err.Error(),
			})
			continue
		}
		switch change {
		case ChangeInserted:
			stats.Inserted++
		case ChangeVersioned:
			stats.Versioned++
		case ChangeOverwritten:
			stats.Overwritten++
		default:
			stats.Unchanged++
		}
	}

	return stats, rejected
}

// ResolveSK returns the surrogate key of the version whose validity interval
// contains d, or false when no version was valid at that date.
func (b *Builder) ResolveSK(merchantID string, d time.Time) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, version := range b.chains[merchantID] {
		if version.ContainsDate(d) {
			return version.SurrogateKey, true
		}
	}
	return 0, false
}

// CurrentVersion returns the open version for a merchant.
func (b *Builder) CurrentVersion(merchantID string) (models.MerchantVersion, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	chain := b.chains[merchantID]
	if len(chain) == 0 {
		return models.MerchantVersion{}, false
	}
	return *chain[len(chain)-1], true
}

// Versions returns the full dimension table ordered by merchant then
// effective_from.
func (b *Builder) Versions() []models.MerchantVersion {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids := make([]string, 0, len(b.chains))
	for id := range b.chains {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	versions := make([]models.MerchantVersion, 0)
	for _, id := range ids {
		for _, version := range b.chains[id] {
			versions = append(versions, *version)
		}
	}
	return versions
}

func (b *Builder) open(snapshot models.Merchant, effectiveFrom time.Time) {
	version := &models.MerchantVersion{
		SurrogateKey:   b.nextSK,
		MerchantID:     snapshot.MerchantID,
		BusinessName:   snapshot.BusinessName,
		IndustryCode:   snapshot.IndustryCode,
		StateCode:      snapshot.StateCode,
		AnnualRevenue:  snapshot.AnnualRevenue,
		EmployeesCount: snapshot.EmployeesCount,
		RiskScore:      snapshot.RiskScore,
		OnboardingDate: snapshot.OnboardingDate,
		EffectiveFrom:  effectiveFrom,
		IsCurrent:      true,
		BatchDate:      snapshot.Lineage.BatchDate,
	}
	b.nextSK++
	b.chains[snapshot.MerchantID] = append(b.chains[snapshot.MerchantID], version)
}

// overwrite keeps the version row and surrogate key, replacing attribute
// values. Used for SCD1 attributes and same-day corrections.
func (b *Builder) overwrite(current *models.MerchantVersion, snapshot models.Merchant, batchDate time.Time) {
	current.BusinessName = snapshot.BusinessName
	current.IndustryCode = snapshot.IndustryCode
	current.StateCode = snapshot.StateCode
	current.AnnualRevenue = snapshot.AnnualRevenue
	current.EmployeesCount = snapshot.EmployeesCount
	current.RiskScore = snapshot.RiskScore
	current.OnboardingDate = snapshot.OnboardingDate
	current.BatchDate = batchDate
}

// diff reports whether tracked and untracked attributes differ between the
// open version and the snapshot.
func (b *Builder) diff(current *models.MerchantVersion, snapshot models.Merchant) (trackedChanged, untrackedChanged bool) {
	have := current.Attributes()
	want := snapshot.Attributes()
	for name, value := range want {
		if have[name] == value {
			continue
		}
		if b.tracked[name] {
			trackedChanged = true
		} else {
			untrackedChanged = true
		}
	}
	return trackedChanged, untrackedChanged
}
