package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"naturequest/internal/models"
	"naturequest/internal/roster"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// ErrInvalidBackup rejects a whole import; nothing is restored
var ErrInvalidBackup = errors.New("invalid file")

// BackupData is the export file: the roster collections plus a header
type BackupData struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
	models.Snapshot
}

// requiredCollections must be present in an import, even when empty
var requiredCollections = []string{"classes", "guilds", "missions", "students"}

// BackupService exports and restores the roster
type BackupService struct {
	store *roster.Store
	now   func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(store *roster.Store) *BackupService {
	return &BackupService{store: store, now: time.Now}
}

// Export captures the current roster
func (s *BackupService) Export() BackupData {
	return BackupData{
		Version:    BackupVersion,
		ExportedAt: s.now().UTC(),
		Snapshot:   s.store.Snapshot(),
	}
}

// ExportToWriter writes the backup as indented JSON
func (s *BackupService) ExportToWriter(w io.Writer) error {
	backup := s.Export()
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	log.Printf("Exported: %d classes, %d guilds, %d missions, %d students",
		len(backup.Classes), len(backup.Guilds), len(backup.Missions), len(backup.Students))
	return nil
}

// ExportFile writes the backup to a file
func (s *BackupService) ExportFile(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file); err != nil {
		return err
	}
	log.Printf("Roster exported successfully to %s", outputPath)
	return nil
}

// ImportFromReader replaces the roster with the backup in reader. A malformed
// file fails with ErrInvalidBackup and leaves the roster untouched.
func (s *BackupService) ImportFromReader(ctx context.Context, reader io.Reader) (*BackupData, error) {
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	for _, name := range requiredCollections {
		if _, ok := fields[name]; !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrInvalidBackup, name)
		}
	}

	var backup BackupData
	if err := json.Unmarshal(raw, &backup); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if err := checkReferences(backup.Snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	// Restore keeps the new state in memory even when the flush fails
	if err := s.store.Restore(ctx, backup.Snapshot); err != nil {
		return &backup, err
	}

	log.Printf("Imported: %d classes, %d guilds, %d missions, %d students",
		len(backup.Classes), len(backup.Guilds), len(backup.Missions), len(backup.Students))
	return &backup, nil
}

// ImportFile restores the roster from a backup file
func (s *BackupService) ImportFile(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	_, err = s.ImportFromReader(ctx, file)
	return err
}

// checkReferences rejects entities without ids and duplicate ids
func checkReferences(snap models.Snapshot) error {
	seen := map[string]bool{}
	check := func(kind, id string) error {
		if id == "" {
			return fmt.Errorf("%s without id", kind)
		}
		key := kind + "/" + id
		if seen[key] {
			return fmt.Errorf("duplicate %s id %s", kind, id)
		}
		seen[key] = true
		return nil
	}

	for _, c := range snap.Classes {
		if err := check("class", c.ID); err != nil {
			return err
		}
	}
	for _, g := range snap.Guilds {
		if err := check("guild", g.ID); err != nil {
			return err
		}
	}
	for _, m := range snap.Missions {
		if err := check("mission", m.ID); err != nil {
			return err
		}
	}
	for _, st := range snap.Students {
		if err := check("student", st.ID); err != nil {
			return err
		}
	}
	return nil
}
