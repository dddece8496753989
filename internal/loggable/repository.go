package loggable

import (
	"context"
	"fmt"

	"github.com/auditbridge/auditbridge/internal/model"
	"gorm.io/gorm"
)

const defaultListLimit = 100

// Filters narrows ListAll. Empty fields match everything.
type Filters struct {
	ObjectClass string
	Action      string
	Username    string
}

// Repository reads log entries.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new log entry repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LogEntries returns the entries of one object, newest version first.
func (r *Repository) LogEntries(ctx context.Context, objectClass, objectID string, limit int) ([]model.LogEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var entries []model.LogEntry
	err := r.db.WithContext(ctx).
		Where("object_class = ? AND object_id = ?", objectClass, objectID).
		Order("version DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list log entries of %s %s: %w", objectClass, objectID, err)
	}
	return entries, nil
}

// LogEntriesFor is LogEntries for a loaded model, resolving its class and primary key from the gorm schema.
func (r *Repository) LogEntriesFor(ctx context.Context, entity any, limit int) ([]model.LogEntry, error) {
	stmt := &gorm.Statement{DB: r.db}
	if err := stmt.Parse(entity); err != nil {
		return nil, fmt.Errorf("failed to parse model %T: %w", entity, err)
	}
	if stmt.Schema.PrioritizedPrimaryField == nil {
		return nil, fmt.Errorf("model %T has no primary key", entity)
	}
	id, isZero := stmt.Schema.PrioritizedPrimaryField.ValueOf(ctx, reflectValue(entity))
	if isZero {
		return nil, nil
	}
	return r.LogEntries(ctx, stmt.Schema.Name, fmt.Sprint(id), limit)
}

// ListAll returns entries across all objects, most recent first.
func (r *Repository) ListAll(ctx context.Context, filters Filters, limit int) ([]model.LogEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := r.db.WithContext(ctx).Model(&model.LogEntry{})

	if filters.ObjectClass != "" {
		query = query.Where("object_class = ?", filters.ObjectClass)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if filters.Username != "" {
		query = query.Where("username = ?", filters.Username)
	}

	var entries []model.LogEntry
	if err := query.Order("logged_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list log entries: %w", err)
	}
	return entries, nil
}
