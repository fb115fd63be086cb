// Package store persists game records and trash markers as one JSON file per app.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"steamscraper/internal/models"
)

const (
	recordExt   = ".json"
	trashSuffix = "-trash.json"
)

// ErrNotFound is returned when a record file does not exist.
var ErrNotFound = errors.New("record not found")

// FileStore keeps valid records as <id>.json and trash markers as
// <id>-trash.json in a single directory.
type FileStore struct {
	dir    string
	pretty bool
}

// NewFileStore creates a store rooted at dir. Files are indented when pretty is set.
func NewFileStore(dir string, pretty bool) *FileStore {
	return &FileStore{dir: dir, pretty: pretty}
}

// Dir returns the store directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// RecordName returns the file name of a valid record.
func RecordName(appID int) string {
	return strconv.Itoa(appID) + recordExt
}

// TrashName returns the file name of a trash marker.
func TrashName(appID int) string {
	return strconv.Itoa(appID) + trashSuffix
}

// IsTrashName reports whether name is a trash marker file.
func IsTrashName(name string) bool {
	return strings.HasSuffix(name, trashSuffix)
}

// RecordPath returns the path of the record file for appID.
func (s *FileStore) RecordPath(appID int) string {
	return filepath.Join(s.dir, RecordName(appID))
}

// Exists reports whether a record or a trash marker is stored for appID.
func (s *FileStore) Exists(appID int) (bool, error) {
	for _, name := range []string{RecordName(appID), TrashName(appID)} {
		ok, err := s.HasFile(name)
		if err != nil || ok {
			return ok, err
		}
	}

	return false, nil
}

// HasFile reports whether name exists in the store directory.
func (s *FileStore) HasFile(name string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.dir, name))
	if err == nil {
		return true, nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return false, fmt.Errorf("stat %s: %w", name, err)
}

// SaveRecord writes record as <app_id>.json.
func (s *FileStore) SaveRecord(record *models.GameRecord) error {
	return s.SaveRecordFile(RecordName(record.AppID), record)
}

// SaveRecordFile writes record under name.
func (s *FileStore) SaveRecordFile(name string, record *models.GameRecord) error {
	return s.writeJSON(name, record)
}

// SaveTrash writes marker as <app_id>-trash.json.
func (s *FileStore) SaveTrash(marker models.TrashMarker) error {
	return s.writeJSON(TrashName(marker.AppID), marker)
}

// LoadRecord reads the record for appID.
func (s *FileStore) LoadRecord(appID int) (*models.GameRecord, error) {
	return s.LoadFile(RecordName(appID))
}

// LoadFile reads and decodes the record stored under name.
func (s *FileStore) LoadFile(name string) (*models.GameRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}

		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	var record models.GameRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	return &record, nil
}

// ListRecords returns the names of all record files in lexical order.
// Trash markers are excluded. A missing directory yields an empty list.
func (s *FileStore) ListRecords() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}

		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}

	names := []string{}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordExt) || IsTrashName(name) {
			continue
		}

		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// writeJSON encodes v into a temporary file next to the target and renames it
// into place, so readers never observe a partial record.
func (s *FileStore) writeJSON(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()

	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if err := Encode(tmp, v, s.pretty); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("encode %s: %w", name, err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("sync %s: %w", name, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}

	return nil
}

// Encode writes v as JSON without HTML escaping, indented by two spaces when pretty is set.
func Encode(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if pretty {
		enc.SetIndent("", "  ")
	}

	return enc.Encode(v)
}
