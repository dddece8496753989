// Package loggable writes a versioned log entry for every create, update and remove of loggable models.
//
// A model is loggable when at least one of its fields is tagged `loggable:"versioned"`.
// Entries are written in the same transaction as the change and attributed to the
// username stored in the request's util.AuditContext by SetUsername.
package loggable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/auditbridge/auditbridge/internal/metrics"
	"github.com/auditbridge/auditbridge/internal/model"
	"github.com/auditbridge/auditbridge/internal/util"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const (
	tagName   = "loggable"
	versioned = "versioned"
)

// ErrInvalidUsername is returned by SetUsername for values that carry no username.
var ErrInvalidUsername = errors.New("username must be a string or expose a username")

// DefaultRedactedFields lists the data keys replaced by "[REDACTED]" in log entries.
var DefaultRedactedFields = []string{"access_token", "bearer_token", "password", "secret", "token"}

type tokenUsername interface {
	Username() string
}

type userUsername interface {
	GetUsername() string
}

// Listener is the gorm plugin that writes log entries.
type Listener struct {
	defaultUsername string
	redacted        map[string]bool
	now             func() time.Time
	log             zerolog.Logger
}

// Option configures a Listener.
type Option func(*Listener)

// WithDefaultUsername sets the username of entries written outside a request.
func WithDefaultUsername(name string) Option {
	return func(l *Listener) { l.defaultUsername = name }
}

// WithRedactedFields replaces the list of redacted data keys.
func WithRedactedFields(fields []string) Option {
	return func(l *Listener) {
		l.redacted = make(map[string]bool, len(fields))
		for _, f := range fields {
			l.redacted[f] = true
		}
	}
}

// WithLogger sets the logger used for write failures.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Listener) { l.log = log }
}

// WithClock overrides the time source of LoggedAt.
func WithClock(now func() time.Time) Option {
	return func(l *Listener) { l.now = now }
}

// New returns a Listener. Register it with db.Use.
func New(opts ...Option) *Listener {
	l := &Listener{
		now: time.Now,
		log: zerolog.Nop(),
	}
	WithRedactedFields(DefaultRedactedFields)(l)
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name implements gorm.Plugin.
func (l *Listener) Name() string {
	return "auditbridge:loggable"
}

// Initialize implements gorm.Plugin.
func (l *Listener) Initialize(db *gorm.DB) error {
	const commit = "gorm:commit_or_rollback_transaction"

	err := db.Callback().Create().After("gorm:create").Before(commit).
		Register("loggable:create", l.after(model.LogActionCreate))
	if err != nil {
		return fmt.Errorf("failed to register loggable create callback: %w", err)
	}
	err = db.Callback().Update().After("gorm:update").Before(commit).
		Register("loggable:update", l.after(model.LogActionUpdate))
	if err != nil {
		return fmt.Errorf("failed to register loggable update callback: %w", err)
	}
	err = db.Callback().Delete().After("gorm:delete").Before(commit).
		Register("loggable:remove", l.after(model.LogActionRemove))
	if err != nil {
		return fmt.Errorf("failed to register loggable remove callback: %w", err)
	}
	return nil
}

// SetUsername records the username attributed to every change made with ctx.
// value is a username string, a security token, or a user object exposing GetUsername.
func (l *Listener) SetUsername(ctx context.Context, value any) error {
	var username string
	switch v := value.(type) {
	case string:
		username = v
	case tokenUsername:
		username = v.Username()
	case userUsername:
		username = v.GetUsername()
	default:
		return fmt.Errorf("%w: got %T", ErrInvalidUsername, value)
	}

	ac := util.GetAuditContext(ctx)
	if ac == nil {
		return util.ErrNoAuditContext
	}
	return ac.SetUsername(username)
}

func versionedFields(s *schema.Schema) []*schema.Field {
	var fields []*schema.Field
	for _, f := range s.Fields {
		if f.Tag.Get(tagName) == versioned {
			fields = append(fields, f)
		}
	}
	return fields
}

func (l *Listener) after(action string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Error != nil || db.Statement.Schema == nil || db.RowsAffected == 0 {
			return
		}
		fields := versionedFields(db.Statement.Schema)
		if len(fields) == 0 {
			return
		}

		rv := db.Statement.ReflectValue
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				if err := l.write(db, action, reflect.Indirect(rv.Index(i)), fields); err != nil {
					_ = db.AddError(err)
					return
				}
			}
		case reflect.Struct:
			if err := l.write(db, action, rv, fields); err != nil {
				_ = db.AddError(err)
			}
		}
	}
}

func (l *Listener) write(db *gorm.DB, action string, rv reflect.Value, fields []*schema.Field) error {
	ctx := db.Statement.Context
	s := db.Statement.Schema

	if s.PrioritizedPrimaryField == nil {
		return nil
	}
	id, isZero := s.PrioritizedPrimaryField.ValueOf(ctx, rv)
	if isZero {
		// bulk statements without a loaded model carry no object identity
		l.log.Debug().Str("model", s.Name).Str("action", action).Msg("skipping log entry without primary key")
		return nil
	}

	entry := &model.LogEntry{
		Action:      action,
		LoggedAt:    l.now(),
		ObjectClass: s.Name,
		ObjectID:    fmt.Sprint(id),
	}

	if action != model.LogActionRemove {
		data := make(map[string]interface{}, len(fields))
		for _, f := range fields {
			v, _ := f.ValueOf(ctx, rv)
			data[f.DBName] = v
		}
		raw, err := json.Marshal(filterSensitiveData(data, l.redacted))
		if err != nil {
			return fmt.Errorf("failed to encode log entry data: %w", err)
		}
		entry.Data = raw
	}

	if ac := util.GetAuditContext(ctx); ac != nil {
		if name, ok := ac.Username(); ok {
			entry.Username = name
		} else {
			entry.Username = l.defaultUsername
		}
		entry.IPAddress = ac.IPAddress
		entry.UserAgent = ac.UserAgent
	} else {
		entry.Username = l.defaultUsername
	}

	tx := db.Session(&gorm.Session{NewDB: true})
	var last int
	err := tx.Model(&model.LogEntry{}).
		Where("object_class = ? AND object_id = ?", entry.ObjectClass, entry.ObjectID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&last).Error
	if err != nil {
		metrics.IncLogEntry(action, "error")
		return fmt.Errorf("failed to read log entry version: %w", err)
	}
	entry.Version = last + 1

	if err := tx.Create(entry).Error; err != nil {
		metrics.IncLogEntry(action, "error")
		l.log.Warn().Err(err).Str("model", s.Name).Str("object_id", entry.ObjectID).Msg("failed to write log entry")
		return fmt.Errorf("failed to write log entry: %w", err)
	}
	metrics.IncLogEntry(action, "ok")
	return nil
}

func reflectValue(entity any) reflect.Value {
	return reflect.Indirect(reflect.ValueOf(entity))
}

// filterSensitiveData replaces redacted keys, recursing into nested maps.
func filterSensitiveData(data map[string]interface{}, redacted map[string]bool) map[string]interface{} {
	filtered := make(map[string]interface{}, len(data))

	for key, value := range data {
		if redacted[key] {
			filtered[key] = "[REDACTED]"
			continue
		}

		if nestedMap, ok := value.(map[string]interface{}); ok {
			filtered[key] = filterSensitiveData(nestedMap, redacted)
			continue
		}

		filtered[key] = value
	}

	return filtered
}
