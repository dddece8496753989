package db

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/auditbridge/auditbridge/internal/config"
	"github.com/auditbridge/auditbridge/internal/model"
	"github.com/auditbridge/auditbridge/internal/util"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func TestDetectDatabaseType(t *testing.T) {
	tests := []struct {
		dsn  string
		want DatabaseType
	}{
		{"postgres://u:p@localhost/db", DatabaseTypePostgreSQL},
		{"postgresql://localhost/db", DatabaseTypePostgreSQL},
		{"file:auditbridge.db", DatabaseTypeSQLite},
		{":memory:", DatabaseTypeSQLite},
		{"/var/lib/auditbridge/data.db", DatabaseTypeSQLite},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectDatabaseType(tt.dsn), tt.dsn)
	}
}

func TestOpenRegistersAuditPlugins(t *testing.T) {
	cfg := &config.Config{
		DatabaseDSN: filepath.Join(t.TempDir(), "test.db"),
		Audit: config.AuditConfig{
			DefaultActor: "system",
			RedactFields: []string{"password"},
		},
	}

	d, err := Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer d.Close()
	require.NoError(t, Migrate(d.DB))

	ctx := util.SetAuditContext(context.Background(), util.NewAuditContext("", ""))
	require.NoError(t, d.Loggable.SetUsername(ctx, "alice"))

	doc := &model.Document{Title: "Hello"}
	require.NoError(t, d.DB.WithContext(ctx).Create(doc).Error)
	assert.Equal(t, "system", doc.CreatedBy)

	var entry model.LogEntry
	require.NoError(t, d.DB.Where("object_id = ?", "1").First(&entry).Error)
	assert.Equal(t, "alice", entry.Username)
}

func TestGormLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(zerolog.New(&buf))

	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), fc, nil)
	assert.Empty(t, buf.String(), "fast queries are not logged at warn level")

	l.Trace(context.Background(), time.Now(), fc, errors.New("boom"))
	assert.Contains(t, buf.String(), "query failed")

	buf.Reset()
	l.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), fc, errors.New("boom"))
	assert.Empty(t, buf.String())
}
