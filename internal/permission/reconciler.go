package permission

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/keshon/server-warden/internal/host"
)

// ReconcilerConfig holds the timing knobs of the reconciliation loop.
type ReconcilerConfig struct {
	// CheckInterval is how often the loop wakes to look for registry churn.
	CheckInterval time.Duration
	// ApplyInterval is how often a full re-apply runs even without churn.
	ApplyInterval time.Duration
	// ChurnGrace is how long to wait after detecting churn before applying,
	// so an in-progress plugin reload can finish registering its handlers.
	ChurnGrace time.Duration
	// ErrorBackoff is the extra sleep after a failed tick.
	ErrorBackoff time.Duration
	// LogChanges enables per-apply logging.
	LogChanges bool
}

// DefaultReconcilerConfig returns the standard intervals.
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		CheckInterval: 2 * time.Second,
		ApplyInterval: 30 * time.Second,
		ChurnGrace:    time.Second,
		ErrorBackoff:  5 * time.Second,
	}
}

// Reconciler keeps the live filter state converged onto the persisted override
// map. Plugin hot-reloads recreate handler and filter objects with compiled-in
// defaults, silently discarding earlier live mutations; re-applying the stored
// overrides is the only mechanism that heals this.
type Reconciler struct {
	reg   *host.Registry
	store *Store
	cfg   ReconcilerConfig

	lastSignatures map[string]bool
	lastFullApply  time.Time
}

// NewReconciler returns a reconciler over reg and store.
func NewReconciler(reg *host.Registry, store *Store, cfg ReconcilerConfig) *Reconciler {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultReconcilerConfig().CheckInterval
	}
	if cfg.ApplyInterval <= 0 {
		cfg.ApplyInterval = DefaultReconcilerConfig().ApplyInterval
	}
	if cfg.ChurnGrace < 0 {
		cfg.ChurnGrace = 0
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = DefaultReconcilerConfig().ErrorBackoff
	}
	return &Reconciler{reg: reg, store: store, cfg: cfg}
}

// Run performs an initial full apply and then loops until ctx is cancelled.
// A failed tick is logged and followed by a backoff sleep; it never terminates
// the loop.
func (r *Reconciler) Run(ctx context.Context) {
	if err := r.ApplyAll(); err != nil {
		log.Printf("[WARN] reconciler: initial apply failed: %v", err)
	}
	r.lastSignatures = r.signatures()
	r.lastFullApply = time.Now()

	ticker := time.NewTicker(r.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.tick(ctx); err != nil {
				log.Printf("[WARN] reconciler: tick failed: %v", err)
				if !sleep(ctx, r.cfg.ErrorBackoff) {
					return
				}
			}
		}
	}
}

// tick evaluates both triggers: registry membership churn and the periodic
// full-apply deadline. One loop keeps full applies serialized.
func (r *Reconciler) tick(ctx context.Context) error {
	current := r.signatures()
	churn := !sameSignatures(current, r.lastSignatures)

	if churn {
		// A reload registers a plugin's handlers in a burst; let it settle,
		// then re-read so the post-reload membership is what gets recorded.
		if !sleep(ctx, r.cfg.ChurnGrace) {
			return nil
		}
		current = r.signatures()
	}

	if churn || time.Since(r.lastFullApply) >= r.cfg.ApplyInterval {
		if err := r.ApplyAll(); err != nil {
			return fmt.Errorf("full apply: %w", err)
		}
		r.lastFullApply = time.Now()
	}

	r.lastSignatures = current
	return nil
}

// ApplyAll re-applies every persisted override onto the matching live handler.
// Handlers currently absent from the registry are skipped; they pick up their
// overrides on the tick after they reappear.
func (r *Reconciler) ApplyAll() error {
	overrides, err := r.store.Overrides()
	if err != nil {
		return err
	}
	if len(overrides) == 0 {
		return nil
	}

	applied := 0
	for plugin, descriptors := range Snapshot(r.reg) {
		perPlugin := overrides[plugin]
		if len(perPlugin) == 0 {
			continue
		}
		for _, d := range descriptors {
			rec, ok := perPlugin[d.HandlerID]
			if !ok || rec.IsZero() {
				continue
			}
			Apply(d.Handler(), rec)
			applied++
		}
	}

	if r.cfg.LogChanges && applied > 0 {
		log.Printf("[INFO] reconciler: re-applied overrides to %d handlers", applied)
	}
	return nil
}

// signatures returns the "{plugin}:{handler}" membership set of the current
// snapshot. A change in this set is a strong signal of an in-progress reload.
func (r *Reconciler) signatures() map[string]bool {
	sigs := make(map[string]bool)
	for plugin, descriptors := range Snapshot(r.reg) {
		for _, d := range descriptors {
			sigs[plugin+":"+d.HandlerID] = true
		}
	}
	return sigs
}

func sameSignatures(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// sleep waits d unless ctx is cancelled first; it reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
