package vault

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"dissent/internal/domain"
	"dissent/internal/util/memzero"
)

const (
	// DefaultAutoLock is the idle time after which an unlocked handle locks.
	DefaultAutoLock = 5 * time.Minute

	// MinPassphraseLen is the shortest passphrase, in characters, Unlock accepts.
	MinPassphraseLen = 4
)

// ErrPassphraseTooShort is returned by Unlock before any verification runs.
var ErrPassphraseTooShort = fmt.Errorf("passphrase must be at least %d characters", MinPassphraseLen)

// State is the lock state of a Handle.
type State int

const (
	Locked State = iota
	Unlocked
)

func (s State) String() string {
	if s == Unlocked {
		return "unlocked"
	}
	return "locked"
}

// Handle owns the in-memory passphrase.
type Handle struct {
	verifier domain.PassphraseVerifier
	timeout  time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	passphrase []byte
	timer      *time.Timer
	gen        uint64
	closed     bool
}

// New returns a Locked handle. timeout <= 0 selects DefaultAutoLock. A nil
// verifier accepts any passphrase.
func New(timeout time.Duration, verifier domain.PassphraseVerifier, logger *slog.Logger) *Handle {
	if timeout <= 0 {
		timeout = DefaultAutoLock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handle{verifier: verifier, timeout: timeout, logger: logger}
}

// State reports whether the handle is currently unlocked.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.passphrase != nil {
		return Unlocked
	}
	return Locked
}

// Unlock verifies passphrase and keeps a private copy of it. The caller
// keeps ownership of its slice. Unlocking an unlocked handle replaces the
// passphrase.
func (h *Handle) Unlock(passphrase []byte) error {
	if utf8.RuneCount(passphrase) < MinPassphraseLen {
		return ErrPassphraseTooShort
	}
	if h.verifier != nil {
		if err := h.verifier.VerifyPassphrase(passphrase); err != nil {
			return err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return domain.ErrLocked
	}
	h.wipeLocked()
	h.passphrase = append(make([]byte, 0, len(passphrase)), passphrase...)
	h.armLocked()
	h.logger.Debug("vault unlocked", "auto_lock", h.timeout)
	return nil
}

// Lock zeroizes the passphrase. Locking a locked handle is a no-op.
func (h *Handle) Lock() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.passphrase != nil {
		h.logger.Debug("vault locked")
	}
	h.wipeLocked()
}

// Touch restarts the auto-lock timer of an unlocked handle.
func (h *Handle) Touch() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.passphrase != nil {
		h.armLocked()
	}
}

// WithPassphrase lends the passphrase to fn and counts as activity. It
// returns domain.ErrLocked when the handle is locked.
func (h *Handle) WithPassphrase(fn func(passphrase []byte) error) error {
	h.mu.Lock()
	if h.passphrase == nil {
		h.mu.Unlock()
		return domain.ErrLocked
	}
	// fn gets its own copy so a concurrent lock cannot zero it mid-use.
	lent := append([]byte(nil), h.passphrase...)
	h.armLocked()
	h.mu.Unlock()

	defer memzero.Zero(lent)
	return fn(lent)
}

// Close locks the handle for good.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.wipeLocked()
	h.closed = true
	return nil
}

func (h *Handle) armLocked() {
	if h.timer != nil {
		h.timer.Stop()
	}
	h.gen++
	gen := h.gen
	h.timer = time.AfterFunc(h.timeout, func() { h.expire(gen) })
}

// expire locks the handle unless the timer was re-armed since gen.
func (h *Handle) expire(gen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.gen != gen || h.passphrase == nil {
		return
	}
	h.logger.Debug("vault auto-locked", "idle", h.timeout)
	h.wipeLocked()
}

func (h *Handle) wipeLocked() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	if h.passphrase != nil {
		memzero.Zero(h.passphrase)
		h.passphrase = nil
	}
}

var _ domain.PassphraseSource = (*Handle)(nil)
