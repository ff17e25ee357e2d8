package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"chromabloom/internal/database"
	"chromabloom/internal/models"
	"chromabloom/internal/repository"
	"chromabloom/internal/validation"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// CatalogDocumentVersion is written into every export
const CatalogDocumentVersion = "1.0"

// CatalogDocument is the YAML layout of a catalog and directory export
type CatalogDocument struct {
	Version    string              `yaml:"version"`
	ExportedAt time.Time           `yaml:"exported_at"`
	Activities []*models.Activity  `yaml:"activities"`
	Caregivers []*models.Caregiver `yaml:"caregivers"`
	Children   []*models.Child     `yaml:"children"`
}

// ImportSummary counts the records an import wrote
type ImportSummary struct {
	Activities int
	Caregivers int
	Children   int
}

// BackupService imports and exports the activity catalog and the child
// directory as YAML.
type BackupService struct {
	db     *database.DB
	logger *zap.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger *zap.Logger) *BackupService {
	return &BackupService{db: db, logger: logger}
}

// Export writes the catalog and directory to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(ctx, file); err != nil {
		return err
	}
	s.logger.Info("catalog exported", zap.String("path", outputPath))
	return nil
}

// ExportToWriter writes the catalog and directory as YAML to w
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	doc := &CatalogDocument{
		Version:    CatalogDocumentVersion,
		ExportedAt: time.Now().UTC(),
	}

	var err error
	if doc.Activities, err = repository.NewActivityRepository(s.db).List(ctx, "", ""); err != nil {
		return fmt.Errorf("failed to export activities: %w", err)
	}
	if doc.Caregivers, err = repository.NewCaregiverRepository(s.db).ListAll(ctx); err != nil {
		return fmt.Errorf("failed to export caregivers: %w", err)
	}
	if doc.Children, err = repository.NewChildRepository(s.db).ListAll(ctx); err != nil {
		return fmt.Errorf("failed to export children: %w", err)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	s.logger.Info("catalog export complete",
		zap.Int("activities", len(doc.Activities)),
		zap.Int("caregivers", len(doc.Caregivers)),
		zap.Int("children", len(doc.Children)))
	return nil
}

// Import loads a catalog document from a file
func (s *BackupService) Import(ctx context.Context, inputPath string) (ImportSummary, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file)
}

// ImportFromReader upserts every record of the document by id in a single
// transaction. Activities without an id are created with a fresh one.
func (s *BackupService) ImportFromReader(ctx context.Context, reader io.Reader) (ImportSummary, error) {
	var doc CatalogDocument
	if err := yaml.NewDecoder(reader).Decode(&doc); err != nil && err != io.EOF {
		return ImportSummary{}, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if doc.Version != "" && doc.Version != CatalogDocumentVersion {
		return ImportSummary{}, fmt.Errorf("unsupported catalog version %q", doc.Version)
	}

	if err := validateDocument(&doc); err != nil {
		return ImportSummary{}, err
	}

	var summary ImportSummary
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		caregivers := repository.NewCaregiverRepository(tx)
		for _, c := range doc.Caregivers {
			if err := caregivers.Save(ctx, c); err != nil {
				return fmt.Errorf("failed to import caregiver %s: %w", c.ID, err)
			}
			summary.Caregivers++
		}

		children := repository.NewChildRepository(tx)
		for _, c := range doc.Children {
			if err := children.Save(ctx, c); err != nil {
				return fmt.Errorf("failed to import child %s: %w", c.ID, err)
			}
			summary.Children++
		}

		activities := repository.NewActivityRepository(tx)
		for _, a := range doc.Activities {
			if err := activities.Save(ctx, a); err != nil {
				return fmt.Errorf("failed to import activity %q: %w", a.Title, err)
			}
			summary.Activities++
		}
		return nil
	})
	if err != nil {
		return ImportSummary{}, err
	}

	s.logger.Info("catalog import complete",
		zap.Int("activities", summary.Activities),
		zap.Int("caregivers", summary.Caregivers),
		zap.Int("children", summary.Children))
	return summary, nil
}

func validateDocument(doc *CatalogDocument) error {
	for i, c := range doc.Caregivers {
		if c == nil || strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("caregiver %d: id is required", i+1)
		}
		if c.Email != "" {
			if err := validation.ValidateEmail(c.Email); err != nil {
				return fmt.Errorf("caregiver %s: %w", c.ID, err)
			}
		}
	}
	for i, c := range doc.Children {
		if c == nil || strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.CaregiverID) == "" {
			return fmt.Errorf("child %d: id and caregiver_id are required", i+1)
		}
	}
	for i, a := range doc.Activities {
		if a == nil {
			return fmt.Errorf("activity %d is empty", i+1)
		}
		if err := validation.ValidateActivity(a); err != nil {
			return fmt.Errorf("activity %d (%s): %w", i+1, a.Title, err)
		}
	}
	return nil
}
