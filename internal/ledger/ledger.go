// Package ledger guards the wire contract of released protocol IDs: once an
// ID has been published bound to a schema, it may be retired but never
// rebound to another schema.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lanthing-go/ltsignal/internal/protocol"
	"github.com/lanthing-go/ltsignal/internal/store"
)

// ErrIDReassigned is returned when the compiled table binds a released ID
// to a different schema than the one it was released with.
var ErrIDReassigned = errors.New("released protocol id reassigned")

// Conflict describes one reassigned ID.
type Conflict struct {
	ID       protocol.ID
	Released string
	Current  string
	Retired  bool
}

func (c Conflict) String() string {
	state := "active"
	if c.Retired {
		state = "retired"
	}
	return fmt.Sprintf("%d: released as %s (%s), now %s", c.ID, c.Released, state, c.Current)
}

// Report is the difference between the compiled table and the ledger.
type Report struct {
	Added     []protocol.Entry
	Retired   []protocol.ID
	Revived   []protocol.ID
	Unchanged []protocol.ID
	Conflicts []Conflict
}

// AddedIDs returns the IDs of the added entries.
func (r *Report) AddedIDs() []protocol.ID {
	ids := make([]protocol.ID, len(r.Added))
	for i, e := range r.Added {
		ids[i] = e.ID
	}
	return ids
}

// Err returns ErrIDReassigned describing every conflict, or nil.
func (r *Report) Err() error {
	if len(r.Conflicts) == 0 {
		return nil
	}
	parts := make([]string, len(r.Conflicts))
	for i, c := range r.Conflicts {
		parts[i] = c.String()
	}
	return fmt.Errorf("%w: %s", ErrIDReassigned, strings.Join(parts, "; "))
}

// Service compares registries against the ledger kept in the store.
type Service struct {
	store *store.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates a new ledger service.
func NewService(s *store.Store, log *zap.Logger) *Service {
	return &Service{store: s, log: log, now: time.Now}
}

// Check computes the report for reg without writing. A non-nil report is
// returned together with ErrIDReassigned when conflicts exist.
func (s *Service) Check(ctx context.Context, reg *protocol.Registry) (*Report, error) {
	return diff(ctx, s.store, reg)
}

// Reconcile records reg as the current release: new IDs are added, IDs
// missing from reg are retired and IDs that came back with their original
// schema are revived. Nothing is written when a conflict exists.
func (s *Service) Reconcile(ctx context.Context, reg *protocol.Registry) (*Report, error) {
	var report *Report
	err := s.store.InTx(ctx, func(tx *store.Store) error {
		r, err := diff(ctx, tx, reg)
		if err != nil {
			report = r
			return err
		}

		now := s.now().Unix()
		for _, e := range r.Added {
			if err := tx.CreateReleasedID(ctx, &store.ReleasedID{
				ID:          uint32(e.ID),
				MessageName: string(e.Name()),
				ReleasedAt:  now,
			}); err != nil {
				return fmt.Errorf("record %d: %w", e.ID, err)
			}
		}
		for _, id := range r.Retired {
			if err := tx.RetireReleasedID(ctx, uint32(id), now); err != nil {
				return fmt.Errorf("retire %d: %w", id, err)
			}
		}
		for _, id := range r.Revived {
			if err := tx.ReviveReleasedID(ctx, uint32(id)); err != nil {
				return fmt.Errorf("revive %d: %w", id, err)
			}
		}
		report = r
		return nil
	})
	if err != nil {
		return report, err
	}

	s.log.Info("Protocol ledger reconciled",
		zap.Int("added", len(report.Added)),
		zap.Int("retired", len(report.Retired)),
		zap.Int("revived", len(report.Revived)),
		zap.Int("unchanged", len(report.Unchanged)),
	)
	return report, nil
}

func diff(ctx context.Context, st *store.Store, reg *protocol.Registry) (*Report, error) {
	released, err := st.ListReleasedIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	known := make(map[protocol.ID]*store.ReleasedID, len(released))
	for _, r := range released {
		known[protocol.ID(r.ID)] = r
	}

	report := &Report{}
	for _, e := range reg.Entries() {
		name := string(e.Name())
		r, ok := known[e.ID]
		switch {
		case !ok:
			report.Added = append(report.Added, e)
		case r.MessageName != name:
			report.Conflicts = append(report.Conflicts, Conflict{
				ID:       e.ID,
				Released: r.MessageName,
				Current:  name,
				Retired:  r.Retired(),
			})
		case r.Retired():
			report.Revived = append(report.Revived, e.ID)
		default:
			report.Unchanged = append(report.Unchanged, e.ID)
		}
	}

	for _, r := range released {
		if !r.Retired() && !reg.Contains(protocol.ID(r.ID)) {
			report.Retired = append(report.Retired, protocol.ID(r.ID))
		}
	}

	return report, report.Err()
}
