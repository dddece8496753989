// Package blameable stamps the acting user into tagged model fields when gorm creates or updates rows.
//
// A model opts in with struct tags:
//
//	CreatedBy string `blameable:"create"` // set on insert when empty
//	UpdatedBy string `blameable:"update"` // set on insert when empty and on every update
//
// The acting user is read from the request's util.AuditContext, where SetUserValue stored it.
package blameable

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/auditbridge/auditbridge/internal/metrics"
	"github.com/auditbridge/auditbridge/internal/util"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const (
	tagName  = "blameable"
	onCreate = "create"
	onUpdate = "update"
)

// ErrUnsupportedValue is reported when the user value cannot be stored in a blameable field.
var ErrUnsupportedValue = errors.New("unsupported user value for blameable field")

type usernamer interface {
	GetUsername() string
}

type identifier interface {
	GetID() uint
}

// Listener is the gorm plugin that writes blameable fields.
type Listener struct {
	defaultValue string
	log          zerolog.Logger
}

// Option configures a Listener.
type Option func(*Listener)

// WithDefaultValue sets the actor stamped into string fields when no request supplied one,
// e.g. "system" for CLI operations.
func WithDefaultValue(v string) Option {
	return func(l *Listener) { l.defaultValue = v }
}

// WithLogger sets the logger used for conversion failures.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Listener) { l.log = log }
}

// New returns a Listener. Register it with db.Use.
func New(opts ...Option) *Listener {
	l := &Listener{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name implements gorm.Plugin.
func (l *Listener) Name() string {
	return "auditbridge:blameable"
}

// Initialize implements gorm.Plugin.
func (l *Listener) Initialize(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("blameable:create", l.beforeCreate); err != nil {
		return fmt.Errorf("failed to register blameable create callback: %w", err)
	}
	if err := db.Callback().Update().Before("gorm:update").Register("blameable:update", l.beforeUpdate); err != nil {
		return fmt.Errorf("failed to register blameable update callback: %w", err)
	}
	return nil
}

// SetUserValue records value as the actor of every change made with ctx.
// value may be a user object or a scalar (username or ID).
func (l *Listener) SetUserValue(ctx context.Context, value any) error {
	ac := util.GetAuditContext(ctx)
	if ac == nil {
		return util.ErrNoAuditContext
	}
	return ac.SetUserValue(value)
}

type trackedField struct {
	*schema.Field
	on string
}

func trackedFields(s *schema.Schema) []trackedField {
	var fields []trackedField
	for _, f := range s.Fields {
		switch on := f.Tag.Get(tagName); on {
		case onCreate, onUpdate:
			fields = append(fields, trackedField{Field: f, on: on})
		}
	}
	return fields
}

// currentValue returns the value to stamp and where it came from.
func (l *Listener) currentValue(ctx context.Context) (any, string, bool) {
	if ac := util.GetAuditContext(ctx); ac != nil {
		if v, ok := ac.UserValue(); ok && v != nil {
			return v, "request", true
		}
	}
	if l.defaultValue != "" {
		return l.defaultValue, "default", true
	}
	return nil, "", false
}

func (l *Listener) beforeCreate(db *gorm.DB) {
	if db.Error != nil || db.Statement.Schema == nil {
		return
	}
	fields := trackedFields(db.Statement.Schema)
	if len(fields) == 0 {
		return
	}
	ctx := db.Statement.Context
	value, source, ok := l.currentValue(ctx)
	if !ok {
		return
	}

	rv := db.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := l.stampZero(ctx, reflect.Indirect(rv.Index(i)), fields, value, source); err != nil {
				_ = db.AddError(err)
				return
			}
		}
	case reflect.Struct:
		if err := l.stampZero(ctx, rv, fields, value, source); err != nil {
			_ = db.AddError(err)
		}
	}
}

func (l *Listener) stampZero(ctx context.Context, rv reflect.Value, fields []trackedField, value any, source string) error {
	for _, f := range fields {
		if _, isZero := f.ValueOf(ctx, rv); !isZero {
			continue
		}
		v, ok, err := l.fieldValue(f, value, source)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := f.Set(ctx, rv, v); err != nil {
			return fmt.Errorf("failed to set blameable field %s: %w", f.Name, err)
		}
		metrics.IncBlameableStamp(onCreate, source)
	}
	return nil
}

func (l *Listener) beforeUpdate(db *gorm.DB) {
	if db.Error != nil || db.Statement.Schema == nil {
		return
	}
	fields := trackedFields(db.Statement.Schema)
	if len(fields) == 0 {
		return
	}
	value, source, ok := l.currentValue(db.Statement.Context)
	if !ok {
		return
	}

	for _, f := range fields {
		if f.on != onUpdate {
			continue
		}
		v, ok, err := l.fieldValue(f, value, source)
		if err != nil {
			_ = db.AddError(err)
			return
		}
		if !ok {
			continue
		}
		db.Statement.SetColumn(f.DBName, v, true)
		metrics.IncBlameableStamp(onUpdate, source)
	}
}

// fieldValue converts value to the type of f. ok is false when a default value does not fit f.
func (l *Listener) fieldValue(f trackedField, value any, source string) (any, bool, error) {
	v, err := convert(f.FieldType, value)
	if err == nil {
		return v, true, nil
	}
	if source == "default" {
		return nil, false, nil
	}
	l.log.Warn().Err(err).Str("field", f.Name).Str("model", f.Schema.Name).Msg("cannot stamp blameable field")
	return nil, false, fmt.Errorf("%s.%s: %w", f.Schema.Name, f.Name, err)
}

// convert maps a user value onto a field of type ft:
// assignable values are used as is, string fields take a username
// and integer fields take an ID.
func convert(ft reflect.Type, value any) (any, error) {
	vt := reflect.TypeOf(value)
	if vt == nil {
		return nil, fmt.Errorf("%w: nil", ErrUnsupportedValue)
	}
	if vt.AssignableTo(ft) {
		return value, nil
	}

	base := ft
	if base.Kind() == reflect.Ptr {
		base = base.Elem()
	}
	out := reflect.New(base).Elem()

	switch base.Kind() {
	case reflect.String:
		switch v := value.(type) {
		case string:
			out.SetString(v)
		case usernamer:
			out.SetString(v.GetUsername())
		case fmt.Stringer:
			out.SetString(v.String())
		default:
			return nil, fmt.Errorf("%w: %T into %s", ErrUnsupportedValue, value, ft)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		id, ok := integerOf(value)
		if !ok {
			return nil, fmt.Errorf("%w: %T into %s", ErrUnsupportedValue, value, ft)
		}
		if out.CanInt() {
			out.SetInt(int64(id))
		} else {
			out.SetUint(id)
		}
	default:
		return nil, fmt.Errorf("%w: %T into %s", ErrUnsupportedValue, value, ft)
	}

	if ft.Kind() == reflect.Ptr {
		p := reflect.New(base)
		p.Elem().Set(out)
		return p.Interface(), nil
	}
	return out.Interface(), nil
}

func integerOf(value any) (uint64, bool) {
	if id, ok := value.(identifier); ok {
		return uint64(id.GetID()), true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() < 0 {
			return 0, false
		}
		return uint64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true
	}
	return 0, false
}
