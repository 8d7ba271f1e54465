package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dissent/internal/domain"
)

// DefaultMaxRetries bounds the attempts of one optimistic update.
const DefaultMaxRetries = 5

// Mutation changes a draft record in place. Returning an error aborts the
// update and nothing is persisted.
type Mutation func(draft *domain.SessionRecord) error

// Updater applies mutations to stored records with optimistic concurrency.
type Updater struct {
	store      domain.SessionStore
	now        func() time.Time
	logger     *slog.Logger
	maxRetries int
	activity   func()
}

// UpdaterOption configures an Updater.
type UpdaterOption func(*Updater)

// WithClock replaces time.Now for the UpdatedAt stamp.
func WithClock(now func() time.Time) UpdaterOption {
	return func(u *Updater) { u.now = now }
}

// WithLogger sets the logger used for conflict diagnostics.
func WithLogger(l *slog.Logger) UpdaterOption {
	return func(u *Updater) {
		if l != nil {
			u.logger = l
		}
	}
}

// WithActivity registers fn to run after every committed change, e.g. to
// keep an unlocked vault from auto-locking while sessions are in use.
func WithActivity(fn func()) UpdaterOption {
	return func(u *Updater) { u.activity = fn }
}

// WithMaxRetries overrides DefaultMaxRetries. Values below 1 are ignored.
func WithMaxRetries(n int) UpdaterOption {
	return func(u *Updater) {
		if n > 0 {
			u.maxRetries = n
		}
	}
}

// NewUpdater returns an Updater over store.
func NewUpdater(store domain.SessionStore, opts ...UpdaterOption) *Updater {
	u := &Updater{
		store:      store,
		now:        time.Now,
		logger:     slog.Default(),
		maxRetries: DefaultMaxRetries,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Update applies mutate to peer's record and returns the persisted result.
//
// Each attempt loads the record, mutates a clone, stamps UpdatedAt, then
// re-reads the stored version tag and writes with a compare-and-swap
// against the version it started from. A changed tag or a missed swap
// discards the draft and starts over; after maxRetries attempts the update
// fails with ErrConcurrencyConflict. ErrNotFound and ErrSerialization from
// the load are returned unchanged.
func (u *Updater) Update(
	ctx context.Context,
	peer domain.PeerID,
	mutate Mutation,
) (domain.SessionRecord, error) {
	for attempt := 1; attempt <= u.maxRetries; attempt++ {
		rec, ok, err := u.attempt(ctx, peer, mutate, attempt)
		if err != nil {
			return domain.SessionRecord{}, err
		}
		if ok {
			u.touch()
			return rec, nil
		}
	}
	return domain.SessionRecord{}, fmt.Errorf("%s: %w", peer, domain.ErrConcurrencyConflict)
}

// attempt runs one load-mutate-swap round. ok is false on a conflict.
func (u *Updater) attempt(
	ctx context.Context,
	peer domain.PeerID,
	mutate Mutation,
	attempt int,
) (rec domain.SessionRecord, ok bool, err error) {
	current, version, err := u.store.LoadSession(ctx, peer)
	if err != nil {
		return rec, false, err
	}
	defer current.Wipe()

	draft := current.Clone()
	committed := false
	defer func() {
		if !committed {
			draft.Wipe()
		}
	}()

	if err := mutate(&draft); err != nil {
		return rec, false, err
	}
	draft.UpdatedAt = u.now().UTC()

	latest, latestVersion, err := u.store.LoadSession(ctx, peer)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.conflict(peer, current.SessionID, attempt, "record deleted")
			return rec, false, nil
		}
		return rec, false, err
	}
	same := latestVersion == version && latest.UpdatedAt.Equal(current.UpdatedAt)
	latest.Wipe()
	if !same {
		u.conflict(peer, current.SessionID, attempt, "version changed")
		return rec, false, nil
	}

	if _, err := u.store.SaveSession(ctx, peer, draft, version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			u.conflict(peer, current.SessionID, attempt, "compare-and-swap missed")
			return rec, false, nil
		}
		return rec, false, err
	}
	committed = true
	return draft, true, nil
}

func (u *Updater) touch() {
	if u.activity != nil {
		u.activity()
	}
}

func (u *Updater) conflict(peer domain.PeerID, sessionID string, attempt int, reason string) {
	u.logger.Debug("session update conflict",
		"peer", peer,
		"session", sessionID,
		"attempt", attempt,
		"max", u.maxRetries,
		"reason", reason,
	)
}
