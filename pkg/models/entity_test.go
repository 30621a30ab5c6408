package models_test

import (
	"testing"

	"github.com/hamzaawan7/blackcms/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublished_EitherSignalCounts(t *testing.T) {
	e := &models.Entity{PublishStatus: models.PublishStatusDraft}
	assert.False(t, e.Published())

	e.IsPublished = true
	assert.True(t, e.Published())

	e = &models.Entity{PublishStatus: models.PublishStatusPublished}
	assert.True(t, e.Published())

	e = &models.Entity{PublishStatus: models.PublishStatusPending}
	assert.False(t, e.Published())
}

func TestSnapshotAttrs_RoundTrip(t *testing.T) {
	slug := "home"
	e := &models.Entity{
		Slug:          &slug,
		Attributes:    map[string]any{"title": "Home", "order": 1},
		IsPublished:   true,
		PublishStatus: models.PublishStatusPublished,
	}

	snapshot := e.SnapshotAttrs()
	assert.Equal(t, "home", snapshot[models.AttrSlug])
	assert.Equal(t, true, snapshot[models.AttrIsPublished])
	assert.Equal(t, "Home", snapshot["title"])

	var restored models.Entity
	restored.ApplySnapshotAttrs(snapshot)
	require.NotNil(t, restored.Slug)
	assert.Equal(t, "home", *restored.Slug)
	assert.True(t, restored.IsPublished)
	assert.Equal(t, models.PublishStatusPublished, restored.PublishStatus)
	assert.Equal(t, map[string]any{"title": "Home", "order": 1}, restored.Attributes)
}

func TestSnapshotAttrs_NilSlugOmitted(t *testing.T) {
	e := &models.Entity{PublishStatus: models.PublishStatusDraft}
	snapshot := e.SnapshotAttrs()
	assert.NotContains(t, snapshot, models.AttrSlug)

	// Applying a snapshot without a slug clears any existing one.
	slug := "stale"
	e2 := &models.Entity{Slug: &slug}
	e2.ApplySnapshotAttrs(snapshot)
	assert.Nil(t, e2.Slug)
}

func TestClone_IsIndependent(t *testing.T) {
	slug := "home"
	e := &models.Entity{
		Slug:       &slug,
		Attributes: map[string]any{"title": "Home"},
	}

	dup := e.Clone()
	dup.Attributes["title"] = "Changed"
	*dup.Slug = "changed"

	assert.Equal(t, "Home", e.Attributes["title"])
	assert.Equal(t, "home", *e.Slug)
}
