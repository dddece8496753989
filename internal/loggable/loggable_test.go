package loggable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/auditbridge/auditbridge/internal/model"
	"github.com/auditbridge/auditbridge/internal/security"
	"github.com/auditbridge/auditbridge/internal/util"
	"github.com/auditbridge/auditbridge/pkg/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type credential struct {
	ID       uint   `gorm:"primarykey"`
	Name     string `loggable:"versioned"`
	Password string `loggable:"versioned"`
	Comment  string
}

func requestContext(t *testing.T, l *Listener, username string) context.Context {
	t.Helper()
	ctx := util.SetAuditContext(context.Background(), util.NewAuditContext("192.168.1.100", "test-agent"))
	require.NoError(t, l.SetUsername(ctx, username))
	return ctx
}

func decodeData(t *testing.T, entry model.LogEntry) map[string]interface{} {
	t.Helper()
	var data map[string]interface{}
	require.NoError(t, json.Unmarshal(entry.Data, &data))
	return data
}

func TestSetUsername(t *testing.T) {
	alice := &model.User{Username: "alice"}
	token := security.NewAuthToken(&model.User{Username: "bob"}, nil, security.LevelFully)

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"plain string", "carol", "carol"},
		{"token", token, "bob"},
		{"user object", alice, "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			ac := util.NewAuditContext("", "")
			ctx := util.SetAuditContext(context.Background(), ac)

			require.NoError(t, l.SetUsername(ctx, tt.value))
			got, ok := ac.Username()
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetUsernameRejectsValuesWithoutUsername(t *testing.T) {
	l := New()
	ctx := util.SetAuditContext(context.Background(), util.NewAuditContext("", ""))

	err := l.SetUsername(ctx, 42)
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, ok := util.GetAuditContext(ctx).Username()
	assert.False(t, ok)
}

func TestSetUsernameRequiresAuditContext(t *testing.T) {
	l := New()
	err := l.SetUsername(context.Background(), "alice")
	assert.ErrorIs(t, err, util.ErrNoAuditContext)
}

func TestSetUsernameOncePerRequest(t *testing.T) {
	l := New()
	ctx := requestContext(t, l, "alice")
	err := l.SetUsername(ctx, "bob")
	assert.ErrorIs(t, err, util.ErrUsernameAlreadySet)
}

func TestCreateWritesLogEntry(t *testing.T) {
	loggedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(WithClock(func() time.Time { return loggedAt }))
	setup := testhelpers.SetupTestDB(t, l)
	defer setup.Cleanup()

	doc := &model.Document{Title: "Draft", Body: "hello"}
	require.NoError(t, setup.DB.WithContext(requestContext(t, l, "alice")).Create(doc).Error)

	entries, err := NewRepository(setup.DB).LogEntries(context.Background(), "Document", fmt.Sprint(doc.ID), 0)
	testhelpers.AssertNoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	testhelpers.AssertEqual(t, model.LogActionCreate, entry.Action)
	testhelpers.AssertEqual(t, 1, entry.Version)
	testhelpers.AssertEqual(t, "alice", entry.Username)
	testhelpers.AssertEqual(t, "192.168.1.100", entry.IPAddress)
	testhelpers.AssertEqual(t, "test-agent", entry.UserAgent)
	assert.True(t, loggedAt.Equal(entry.LoggedAt))

	data := decodeData(t, entry)
	assert.Equal(t, map[string]interface{}{"title": "Draft", "body": "hello"}, data)
}

func TestUpdateAndRemoveIncrementVersion(t *testing.T) {
	l := New()
	setup := testhelpers.SetupTestDB(t, l)
	defer setup.Cleanup()

	doc := &model.Document{Title: "Draft"}
	require.NoError(t, setup.DB.WithContext(requestContext(t, l, "alice")).Create(doc).Error)
	require.NoError(t, setup.DB.WithContext(requestContext(t, l, "bob")).Model(doc).Update("title", "Final").Error)
	require.NoError(t, setup.DB.WithContext(requestContext(t, l, "carol")).Delete(doc).Error)

	entries, err := NewRepository(setup.DB).LogEntriesFor(context.Background(), doc, 0)
	testhelpers.AssertNoError(t, err)
	require.Len(t, entries, 3)

	// newest first
	assert.Equal(t, model.LogActionRemove, entries[0].Action)
	assert.Equal(t, 3, entries[0].Version)
	assert.Equal(t, "carol", entries[0].Username)
	assert.Empty(t, entries[0].Data)

	assert.Equal(t, model.LogActionUpdate, entries[1].Action)
	assert.Equal(t, 2, entries[1].Version)
	assert.Equal(t, "bob", entries[1].Username)
	assert.Equal(t, "Final", decodeData(t, entries[1])["title"])

	assert.Equal(t, model.LogActionCreate, entries[2].Action)
	assert.Equal(t, 1, entries[2].Version)
}

func TestVersionsAreCountedPerObject(t *testing.T) {
	l := New()
	setup := testhelpers.SetupTestDB(t, l)
	defer setup.Cleanup()

	first := &model.Document{Title: "one"}
	second := &model.Document{Title: "two"}
	require.NoError(t, setup.DB.Create(first).Error)
	require.NoError(t, setup.DB.Create(second).Error)

	entries, err := NewRepository(setup.DB).LogEntriesFor(context.Background(), second, 0)
	testhelpers.AssertNoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Version)
}

func TestDefaultUsernameOutsideRequest(t *testing.T) {
	l := New(WithDefaultUsername("system"))
	setup := testhelpers.SetupTestDB(t, l)
	defer setup.Cleanup()

	doc := &model.Document{Title: "From CLI"}
	require.NoError(t, setup.DB.Create(doc).Error)

	entries, err := NewRepository(setup.DB).LogEntriesFor(context.Background(), doc, 0)
	testhelpers.AssertNoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "system", entries[0].Username)
	assert.Empty(t, entries[0].IPAddress)
}

func TestDefaultUsernameWhenRequestSetNone(t *testing.T) {
	l := New(WithDefaultUsername("system"))
	setup := testhelpers.SetupTestDB(t, l)
	defer setup.Cleanup()

	ctx := util.SetAuditContext(context.Background(), util.NewAuditContext("10.0.0.1", "curl"))
	doc := &model.Document{Title: "anonymous"}
	require.NoError(t, setup.DB.WithContext(ctx).Create(doc).Error)

	entries, err := NewRepository(setup.DB).LogEntriesFor(ctx, doc, 0)
	testhelpers.AssertNoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "system", entries[0].Username)
	assert.Equal(t, "10.0.0.1", entries[0].IPAddress)
}

func TestModelsWithoutVersionedFieldsAreNotLogged(t *testing.T) {
	l := New()
	setup := testhelpers.SetupTestDB(t, l)
	defer setup.Cleanup()

	require.NoError(t, setup.DB.Create(&model.User{Username: "alice"}).Error)

	var count int64
	require.NoError(t, setup.DB.Model(&model.LogEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSensitiveFieldsAreRedacted(t *testing.T) {
	l := New()
	setup := testhelpers.SetupTestDB(t, l)
	defer setup.Cleanup()
	require.NoError(t, setup.DB.AutoMigrate(&credential{}))

	c := &credential{Name: "ci", Password: "hunter2", Comment: "not versioned"}
	require.NoError(t, setup.DB.Create(c).Error)

	entries, err := NewRepository(setup.DB).LogEntriesFor(context.Background(), c, 0)
	testhelpers.AssertNoError(t, err)
	require.Len(t, entries, 1)

	data := decodeData(t, entries[0])
	assert.Equal(t, "ci", data["name"])
	assert.Equal(t, "[REDACTED]", data["password"])
	assert.NotContains(t, data, "comment")
}

func TestEntriesRollBackWithTheChange(t *testing.T) {
	l := New()
	setup := testhelpers.SetupTestDB(t, l)
	defer setup.Cleanup()

	errAbort := errors.New("abort")
	err := setup.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model.Document{Title: "never"}).Error; err != nil {
			return err
		}
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	var count int64
	require.NoError(t, setup.DB.Model(&model.LogEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestFilterSensitiveData(t *testing.T) {
	redacted := map[string]bool{"password": true, "token": true}

	data := map[string]interface{}{
		"name":     "server",
		"password": "p",
		"nested": map[string]interface{}{
			"token": "t",
			"url":   "http://localhost",
		},
	}

	filtered := filterSensitiveData(data, redacted)

	testhelpers.AssertEqual(t, "server", filtered["name"])
	testhelpers.AssertEqual(t, "[REDACTED]", filtered["password"])
	nested, ok := filtered["nested"].(map[string]interface{})
	testhelpers.AssertTrue(t, ok, "nested map should stay a map")
	testhelpers.AssertEqual(t, "[REDACTED]", nested["token"])
	testhelpers.AssertEqual(t, "http://localhost", nested["url"])
}
