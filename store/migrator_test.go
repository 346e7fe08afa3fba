package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldApplyMigration(t *testing.T) {
	assert.True(t, shouldApplyMigration("0.1.2", "0.1.1", "0.1.2"))
	assert.True(t, shouldApplyMigration("0.1.1", "", "0.1.2"))
	assert.False(t, shouldApplyMigration("0.1.1", "0.1.1", "0.1.2"))
	assert.False(t, shouldApplyMigration("0.1.3", "0.1.1", "0.1.2"))
}

func TestValidateMigrationFileName(t *testing.T) {
	assert.NoError(t, validateMigrationFileName("01__add_index.sql"))
	assert.Error(t, validateMigrationFileName("add_index.sql"))
	assert.Error(t, validateMigrationFileName("xx__add_index.sql"))
}

func TestGetSchemaVersionOfMigrateScript(t *testing.T) {
	s := &Store{}
	v, err := s.getSchemaVersionOfMigrateScript("migration/sqlite/0.1/02__add_index.sql")
	assert.NoError(t, err)
	assert.Equal(t, "0.1.3", v)

	_, err = s.getSchemaVersionOfMigrateScript("migration/sqlite/0.1/xx__bad.sql")
	assert.Error(t, err)
}
