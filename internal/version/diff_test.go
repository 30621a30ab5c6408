package version_test

import (
	"testing"

	"github.com/hamzaawan7/blackcms/internal/version"
	"github.com/stretchr/testify/assert"
)

func TestCompare_Empty(t *testing.T) {
	assert.Empty(t, version.Compare(nil, nil))
	assert.Empty(t, version.Compare(map[string]any{"a": 1}, map[string]any{"a": 1}))
}

func TestCompare_AddedRemovedChanged(t *testing.T) {
	from := map[string]any{
		"title": "Home",
		"body":  "welcome",
		"order": 1,
	}
	to := map[string]any{
		"title":    "Homepage",
		"order":    1,
		"subtitle": "hello",
	}

	d := version.Compare(from, to)
	assert.Len(t, d, 3)
	assert.Equal(t, version.Change{Op: version.OpChanged, From: "Home", To: "Homepage"}, d["title"])
	assert.Equal(t, version.Change{Op: version.OpRemoved, From: "welcome"}, d["body"])
	assert.Equal(t, version.Change{Op: version.OpAdded, To: "hello"}, d["subtitle"])
}

func TestCompare_ReversedArgumentsSwapDirection(t *testing.T) {
	from := map[string]any{"a": 1, "b": "x"}
	to := map[string]any{"a": 2, "c": true}

	forward := version.Compare(from, to)
	backward := version.Compare(to, from)

	// Same field set both ways; each op maps to its mirror.
	assert.Len(t, backward, len(forward))
	assert.Equal(t, version.OpChanged, backward["a"].Op)
	assert.Equal(t, 2, backward["a"].From)
	assert.Equal(t, 1, backward["a"].To)
	assert.Equal(t, version.OpAdded, backward["b"].Op)
	assert.Equal(t, version.OpRemoved, backward["c"].Op)
}

func TestCompare_DeepValues(t *testing.T) {
	from := map[string]any{"links": []any{"a", "b"}}
	to := map[string]any{"links": []any{"a", "b"}}
	assert.Empty(t, version.Compare(from, to))

	to = map[string]any{"links": []any{"a"}}
	d := version.Compare(from, to)
	assert.Equal(t, version.OpChanged, d["links"].Op)
}

func TestChangedFields(t *testing.T) {
	fields := version.ChangedFields(
		map[string]any{"title": "Home", "body": "welcome"},
		map[string]any{"title": "Homepage", "body": "welcome", "extra": 1},
	)
	assert.ElementsMatch(t, []string{"title", "extra"}, fields)
}
