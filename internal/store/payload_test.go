package store_test

import (
	"testing"

	"github.com/hamzaawan7/blackcms/internal/store"
	"github.com/hamzaawan7/blackcms/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTo_AbsentFieldsLeaveEntityAlone(t *testing.T) {
	slug := "home"
	e := &models.Entity{
		Slug:          &slug,
		Attributes:    map[string]any{"title": "Home"},
		IsPublished:   true,
		PublishStatus: models.PublishStatusPublished,
	}

	store.EntityPayload{}.ApplyTo(e)

	require.NotNil(t, e.Slug)
	assert.Equal(t, "home", *e.Slug)
	assert.True(t, e.IsPublished)
	assert.Equal(t, models.PublishStatusPublished, e.PublishStatus)
	assert.Equal(t, "Home", e.Attributes["title"])
}

func TestApplyTo_NullSlugClearsIt(t *testing.T) {
	slug := "home"
	e := &models.Entity{Slug: &slug}

	store.EntityPayload{Slug: store.Null[string]()}.ApplyTo(e)

	assert.Nil(t, e.Slug)
}

func TestApplyTo_SetSlugOverwrites(t *testing.T) {
	e := &models.Entity{}

	store.EntityPayload{Slug: store.Set("about")}.ApplyTo(e)

	require.NotNil(t, e.Slug)
	assert.Equal(t, "about", *e.Slug)
}

func TestApplyTo_AttributesMergeKeywise(t *testing.T) {
	e := &models.Entity{Attributes: map[string]any{
		"title": "Home",
		"body":  "welcome",
	}}

	store.EntityPayload{Attributes: map[string]any{
		"title":    "Homepage", // overwrite
		"subtitle": "hello",    // add
		"body":     nil,        // remove
	}}.ApplyTo(e)

	assert.Equal(t, map[string]any{
		"title":    "Homepage",
		"subtitle": "hello",
	}, e.Attributes)
}

func TestApplyTo_NilAttributeMapInitialized(t *testing.T) {
	e := &models.Entity{}

	store.EntityPayload{Attributes: map[string]any{"k": "v"}}.ApplyTo(e)

	assert.Equal(t, "v", e.Attributes["k"])
}

func TestField_ThreeStates(t *testing.T) {
	var absent store.Field[string]
	assert.False(t, absent.IsSet())
	assert.False(t, absent.IsNull())
	_, ok := absent.Value()
	assert.False(t, ok)

	null := store.Null[string]()
	assert.True(t, null.IsSet())
	assert.True(t, null.IsNull())
	_, ok = null.Value()
	assert.False(t, ok)

	set := store.Set("v")
	assert.True(t, set.IsSet())
	assert.False(t, set.IsNull())
	v, ok := set.Value()
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}
