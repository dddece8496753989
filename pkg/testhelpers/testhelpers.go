// Package testhelpers provides a migrated in-memory database and assertion shorthands for tests.
package testhelpers

import (
	"testing"

	"github.com/auditbridge/auditbridge/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDBSetup holds a test database and the function that releases it.
type TestDBSetup struct {
	DB      *gorm.DB
	Cleanup func()
}

// SetupTestDB opens a private in-memory sqlite database, registers plugins and migrates every model.
func SetupTestDB(t *testing.T, plugins ...gorm.Plugin) *TestDBSetup {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to ":memory:" is a separate database
	sqlDB.SetMaxOpenConns(1)

	for _, p := range plugins {
		require.NoError(t, db.Use(p))
	}

	err = db.AutoMigrate(&model.User{}, &model.AccessToken{}, &model.Document{}, &model.LogEntry{})
	require.NoError(t, err)

	return &TestDBSetup{
		DB: db,
		Cleanup: func() {
			_ = sqlDB.Close()
		},
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	require.NoError(t, err)
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
}

// AssertEqual fails the test if expected and actual differ.
func AssertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	assert.Equal(t, expected, actual)
}

// AssertNotNil fails the test if v is nil.
func AssertNotNil(t *testing.T, v interface{}) {
	t.Helper()
	assert.NotNil(t, v)
}

// AssertTrue fails the test with msg if cond is false.
func AssertTrue(t *testing.T, cond bool, msg string) {
	t.Helper()
	assert.True(t, cond, msg)
}

// AssertStringContains fails the test if s does not contain substr.
func AssertStringContains(t *testing.T, s, substr string) {
	t.Helper()
	assert.Contains(t, s, substr)
}
