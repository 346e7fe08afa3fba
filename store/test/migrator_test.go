package test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/ispkb/store"
)

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	category, err := ts.GetKnowledgeCategory(ctx, &store.FindKnowledgeCategory{CategoryID: ptr("image-quality")})
	require.NoError(t, err)
	require.NoError(t, ts.DeleteKnowledgeCategory(ctx, &store.DeleteKnowledgeCategory{ID: category.ID}))

	// A second run neither fails on existing tables nor reseeds.
	require.NoError(t, ts.Migrate(ctx))
	categories, err := ts.ListKnowledgeCategories(ctx, &store.FindKnowledgeCategory{})
	require.NoError(t, err)
	require.Len(t, categories, 2)

	setting, err := ts.GetSystemSetting(ctx, store.SystemSettingSchemaVersion)
	require.NoError(t, err)
	require.NotNil(t, setting)
	current, err := ts.GetCurrentSchemaVersion()
	require.NoError(t, err)
	require.Equal(t, current, setting.Value)
}
