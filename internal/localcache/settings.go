package localcache

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Setting keys. The generation credential is sealed before it is
// written, see Sealer.
const (
	KeyRemoteURL         = "remote_url"
	KeyMealgenCredential = "mealgen_credential"
)

// ErrNotSet reports that a setting has no stored value.
var ErrNotSet = errors.New("setting not set")

// SettingsStore persists endpoint configuration across restarts.
type SettingsStore struct {
	db     *sql.DB
	sealer *Sealer
}

// NewSettingsStore creates a settings store. sealer may be nil when no
// sealed values are used.
func NewSettingsStore(db *sql.DB, sealer *Sealer) *SettingsStore {
	return &SettingsStore{db: db, sealer: sealer}
}

// Get returns the stored value for key, or ErrNotSet.
func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("setting %q: %w", key, ErrNotSet)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key.
func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *SettingsStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	return nil
}

// SetSealed seals value before storing it.
func (s *SettingsStore) SetSealed(key, value string) error {
	if s.sealer == nil {
		return fmt.Errorf("set sealed setting %q: no sealer configured", key)
	}
	sealed, err := s.sealer.Seal(value)
	if err != nil {
		return fmt.Errorf("seal setting %q: %w", key, err)
	}
	return s.Set(key, sealed)
}

// GetSealed returns the unsealed value for key, or ErrNotSet.
func (s *SettingsStore) GetSealed(key string) (string, error) {
	if s.sealer == nil {
		return "", fmt.Errorf("get sealed setting %q: no sealer configured", key)
	}
	sealed, err := s.Get(key)
	if err != nil {
		return "", err
	}
	value, err := s.sealer.Open(sealed)
	if err != nil {
		return "", fmt.Errorf("unseal setting %q: %w", key, err)
	}
	return value, nil
}
