// Package schemas loads note schemas and workflow policies from the project's
// .taskorchestrator/config.yaml and answers tag-match and gate queries.
package schemas

import (
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/ordino/internal/models"
	"gopkg.in/yaml.v3"
)

// Service is an immutable read-through over the schemas loaded at startup.
type Service struct {
	schemas map[string]*models.NoteSchema
	cleanup models.CleanupPolicy
	cascade models.CascadePolicy
	logger  arbor.ILogger
}

// configFile mirrors the recognized sections of config.yaml. Unknown keys are
// ignored by the YAML decoder.
type configFile struct {
	NoteSchemas map[string][]schemaEntryYAML `yaml:"note_schemas"`
	Cleanup     *cleanupYAML                 `yaml:"completion_cleanup"`
	AutoCascade *cascadeYAML                 `yaml:"auto_cascade"`
}

type schemaEntryYAML struct {
	Key         string `yaml:"key"`
	Role        string `yaml:"role"`
	Required    bool   `yaml:"required"`
	Description string `yaml:"description"`
	Guidance    string `yaml:"guidance"`
}

type cleanupYAML struct {
	Enabled    *bool    `yaml:"enabled"`
	RetainTags []string `yaml:"retainTags"`
}

type cascadeYAML struct {
	Enabled  *bool `yaml:"enabled"`
	MaxDepth *int  `yaml:"maxDepth"`
}

// NewService loads <configDir>/.taskorchestrator/config.yaml. A missing file
// means schema-free mode with default policies; malformed entries are skipped
// with a warning, never a startup failure.
func NewService(logger arbor.ILogger, configDir string) *Service {
	s := &Service{
		schemas: map[string]*models.NoteSchema{},
		cleanup: models.DefaultCleanupPolicy(),
		cascade: models.DefaultCascadePolicy(),
		logger:  logger,
	}

	path := filepath.Join(configDir, ".taskorchestrator", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info().Str("path", path).Msg("No schema config found, running schema-free")
		} else {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to read schema config, running schema-free")
		}
		return s
	}

	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("Failed to parse schema config, running schema-free")
		return s
	}

	s.load(&cfg)
	logger.Info().
		Int("schemas", len(s.schemas)).
		Str("path", path).
		Msg("Loaded note schemas")
	return s
}

func (s *Service) load(cfg *configFile) {
	for tag, rawEntries := range cfg.NoteSchemas {
		var entries []models.NoteSchemaEntry
		for _, raw := range rawEntries {
			entry, ok := s.parseEntry(tag, raw)
			if !ok {
				continue
			}
			entries = append(entries, entry)
		}
		if len(entries) > 0 {
			s.schemas[tag] = &models.NoteSchema{Tag: tag, Entries: entries}
		}
	}

	if c := cfg.Cleanup; c != nil {
		if c.Enabled != nil {
			s.cleanup.Enabled = *c.Enabled
		}
		if c.RetainTags != nil {
			s.cleanup.RetainTags = c.RetainTags
		}
	}

	if c := cfg.AutoCascade; c != nil {
		if c.Enabled != nil {
			s.cascade.Enabled = *c.Enabled
		}
		if c.MaxDepth != nil && *c.MaxDepth > 0 {
			s.cascade.MaxDepth = *c.MaxDepth
		}
	}
}

func (s *Service) parseEntry(tag string, raw schemaEntryYAML) (models.NoteSchemaEntry, bool) {
	if !models.ValidNoteKey(raw.Key) {
		s.logger.Warn().Str("tag", tag).Str("key", raw.Key).Msg("Skipping schema entry with invalid key")
		return models.NoteSchemaEntry{}, false
	}
	role, err := models.ParseNoteRole(raw.Role)
	if err != nil {
		s.logger.Warn().Str("tag", tag).Str("key", raw.Key).Str("role", raw.Role).
			Msg("Skipping schema entry with invalid role")
		return models.NoteSchemaEntry{}, false
	}
	return models.NoteSchemaEntry{
		Key:         raw.Key,
		Role:        role,
		Required:    raw.Required,
		Description: raw.Description,
		Guidance:    raw.Guidance,
	}, true
}

// SchemaForTags returns the schema of the first tag with a known schema, or
// nil for schema-free mode.
func (s *Service) SchemaForTags(tags []string) *models.NoteSchema {
	for _, tag := range tags {
		if schema, ok := s.schemas[tag]; ok {
			return schema
		}
	}
	return nil
}

// HasReviewPhase reports whether the matched schema declares a review-phase
// entry. Schema-free items skip the review phase.
func (s *Service) HasReviewPhase(tags []string) bool {
	return s.SchemaForTags(tags).HasReviewPhase()
}

// CleanupPolicy returns the effective completion-cleanup policy.
func (s *Service) CleanupPolicy() models.CleanupPolicy {
	return s.cleanup
}

// CascadePolicy returns the effective auto-cascade policy.
func (s *Service) CascadePolicy() models.CascadePolicy {
	return s.cascade
}
