package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rxtech-lab/floorsheet-signals/internal/utils"
	"github.com/rxtech-lab/floorsheet-signals/pkg/errors"
)

// Manifest records what a persisted table was built from so a later run can skip rebuilding it.
type Manifest struct {
	Table       string    `json:"table"`
	Rows        int       `json:"rows"`
	Fingerprint string    `json:"fingerprint"`
	FirstDate   string    `json:"first_date,omitempty"`
	LastDate    string    `json:"last_date,omitempty"`
	BrokerMode  string    `json:"broker_mode,omitempty"`
	Horizon     string    `json:"horizon,omitempty"`
	WrittenAt   time.Time `json:"written_at"`
}

// Fingerprint hashes an input description (for example normalized file names and sizes) into a
// stable identifier. Order of parts does not matter.
func Fingerprint(parts ...string) string {
	sorted := append([]string(nil), parts...)
	sort.Strings(sorted)

	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))

	return hex.EncodeToString(sum[:])
}

func (s *Store) manifestPath(table string) string {
	return filepath.Join(filepath.Dir(s.Path(table)), table+".manifest.json")
}

// WriteManifest stores a table's manifest next to its Parquet file.
func (s *Store) WriteManifest(m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeWriteFailed, "failed to encode manifest", err)
	}

	if err := utils.WriteBytesAtomic(s.manifestPath(m.Table), data); err != nil {
		return errors.Wrapf(errors.ErrCodeWriteFailed, err, "failed to write manifest for %s", m.Table)
	}

	return nil
}

// ReadManifest returns the manifest of a table and whether one exists.
func (s *Store) ReadManifest(table string) (Manifest, bool, error) {
	data, err := os.ReadFile(s.manifestPath(table))
	if os.IsNotExist(err) {
		return Manifest{}, false, nil
	}

	if err != nil {
		return Manifest{}, false, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to read manifest for %s", table)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, false, errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to decode manifest for %s", table)
	}

	return m, true, nil
}

// UpToDate reports whether a table exists and was built from the given fingerprint.
func (s *Store) UpToDate(table, fingerprint string) bool {
	if !s.Exists(table) {
		return false
	}

	m, ok, err := s.ReadManifest(table)
	if err != nil || !ok {
		return false
	}

	return m.Fingerprint == fingerprint
}
