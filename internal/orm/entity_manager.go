// Package orm re-attaches detached entities to the database.
package orm

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"gorm.io/gorm"
)

// ErrNotAnEntity is returned by Merge for values that are not pointers to gorm models.
var ErrNotAnEntity = errors.New("merge requires a pointer to a model struct")

// EntityManager is the gorm-backed persistence context.
type EntityManager struct {
	db *gorm.DB
}

// NewEntityManager creates a new entity manager.
func NewEntityManager(db *gorm.DB) *EntityManager {
	return &EntityManager{db: db}
}

// Merge returns the managed copy of entity.
// The stored row with entity's primary key is loaded into a fresh instance and
// returned; stored state wins over the detached values. When no such row exists,
// or entity has no primary key yet, a copy of entity is inserted and returned.
// entity itself is never modified.
func (em *EntityManager) Merge(ctx context.Context, entity any) (any, error) {
	rv := reflect.ValueOf(entity)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: got %T", ErrNotAnEntity, entity)
	}

	db := em.db.WithContext(ctx)
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(entity); err != nil {
		return nil, fmt.Errorf("failed to parse model %T: %w", entity, err)
	}
	pk := stmt.Schema.PrioritizedPrimaryField
	if pk == nil {
		return nil, fmt.Errorf("%w: %T has no primary key", ErrNotAnEntity, entity)
	}

	managed := reflect.New(rv.Elem().Type())
	id, isZero := pk.ValueOf(ctx, rv.Elem())
	if !isZero {
		err := db.Where(map[string]interface{}{pk.DBName: id}).Take(managed.Interface()).Error
		if err == nil {
			return managed.Interface(), nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load %s %v: %w", stmt.Schema.Name, id, err)
		}
	}

	managed.Elem().Set(rv.Elem())
	if err := db.Create(managed.Interface()).Error; err != nil {
		return nil, fmt.Errorf("failed to persist %s: %w", stmt.Schema.Name, err)
	}
	return managed.Interface(), nil
}
