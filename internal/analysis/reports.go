package analysis

import (
	"context"
	"sync"

	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/interfaces"
	"github.com/bobmcallan/vire-desk/internal/models"
)

// Reports is the displayed report history of one owner. Each load replaces
// the list.
type Reports struct {
	source interfaces.ReportSource
	creds  interfaces.Credentials
	logger *common.Logger

	mu     sync.Mutex
	owner  int64
	seq    uint64
	target uint64
	loaded bool
	items  []models.Report
}

// NewReports creates an empty list targeting the caller's own reports.
func NewReports(source interfaces.ReportSource, creds interfaces.Credentials, logger *common.Logger) *Reports {
	return &Reports{source: source, creds: creds, logger: logger, owner: interfaces.SelfOwner}
}

// Load fetches reports for the current owner. A failed load degrades to an
// empty list and the error is returned for display. Results superseded by a
// newer Load, Retarget or Clear are dropped.
func (r *Reports) Load(ctx context.Context) error {
	return r.load(ctx, false, 0)
}

// LoadTarget is Load for a target returned by Retarget; it does nothing once
// the list has been retargeted or cleared again.
func (r *Reports) LoadTarget(ctx context.Context, target uint64) error {
	return r.load(ctx, true, target)
}

func (r *Reports) load(ctx context.Context, pinned bool, target uint64) error {
	r.mu.Lock()
	if pinned && target != r.target {
		r.mu.Unlock()
		return nil
	}
	r.seq++
	seq, owner := r.seq, r.owner
	r.mu.Unlock()

	items, err := r.source.GetReports(ctx, r.creds.Token(), owner)

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq {
		r.logger.Debug().Int64("owner", owner).Msg("discarding superseded reports load")
		return nil
	}
	r.loaded = true
	if err != nil {
		r.items = nil
		r.logger.Warn().Int64("owner", owner).Str("error", err.Error()).Msg("reports load failed")
		return err
	}
	r.items = items
	return nil
}

// Items returns a copy of the current list.
func (r *Reports) Items() []models.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Report(nil), r.items...)
}

// Loaded reports whether a load has completed for the current owner.
func (r *Reports) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Owner returns the owner currently targeted.
func (r *Reports) Owner() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owner
}

// Retarget points the list at owner and clears it.
func (r *Reports) Retarget(owner int64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owner = owner
	r.reset()
	return r.target
}

// Clear empties the list and invalidates in-flight loads.
func (r *Reports) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}

func (r *Reports) reset() {
	r.seq++
	r.target++
	r.loaded = false
	r.items = nil
}
