package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"

	"dissent/internal/domain"
	sessionsvc "dissent/internal/services/session"
	"dissent/internal/services/vault"
	"dissent/internal/store"
)

// Wire bundles the stores and services for the CLI.
type Wire struct {
	Secrets  domain.SecretStore
	Sessions domain.SessionService
	Vault    *vault.Handle

	// NeedsPassphrase is set when the backend seals values with the vault
	// passphrase.
	NeedsPassphrase bool

	closers []func() error
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config, logger *slog.Logger) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Wire{}

	switch cfg.Backend {
	case BackendMemory:
		w.Secrets = store.NewMemoryStore()
		w.Vault = vault.New(cfg.AutoLock, nil, logger)

	case BackendFile:
		// The vault verifies against the store it unlocks, so the store
		// takes the vault as its source and the verifier is set after.
		h := &lazyVerifier{}
		w.Vault = vault.New(cfg.AutoLock, h, logger)
		fs, err := store.NewEncryptedFileStore(cfg.Home, w.Vault, store.DefaultEnvelopeParams(store.KDF(cfg.KDF)))
		if err != nil {
			return nil, err
		}
		h.v = fs
		w.Secrets = fs
		w.NeedsPassphrase = true

	case BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		w.closers = append(w.closers, client.Close)
		w.Secrets = store.NewRedisStore(client, cfg.Redis.Prefix)
		w.Vault = vault.New(cfg.AutoLock, nil, logger)

	case BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o700); err != nil {
			return nil, err
		}
		db, err := store.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite backend: %w", err)
		}
		w.closers = append(w.closers, db.Close)
		w.Secrets = db
		w.Vault = vault.New(cfg.AutoLock, nil, logger)
	}
	w.closers = append(w.closers, w.Vault.Close)

	w.Sessions = sessionsvc.New(
		store.NewSessionStore(w.Secrets),
		sessionsvc.WithLogger(logger),
		sessionsvc.WithMaxRetries(cfg.MaxRetries),
		sessionsvc.WithActivity(w.Vault.Touch),
	)
	return w, nil
}

// Unlock opens the vault with passphrase. Backends that do not seal values
// accept an empty passphrase.
func (w *Wire) Unlock(passphrase []byte) error {
	if len(passphrase) == 0 {
		if w.NeedsPassphrase {
			return fmt.Errorf("passphrase required (-p or DISSENT_PASSPHRASE): %w", domain.ErrLocked)
		}
		return nil
	}
	return w.Vault.Unlock(passphrase)
}

// Close releases backend connections and locks the vault.
func (w *Wire) Close() error {
	var errs []error
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// lazyVerifier breaks the construction cycle between the vault and the
// encrypted file store.
type lazyVerifier struct {
	v domain.PassphraseVerifier
}

func (l *lazyVerifier) VerifyPassphrase(p []byte) error { return l.v.VerifyPassphrase(p) }
