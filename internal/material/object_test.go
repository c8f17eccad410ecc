package material

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectRoundTripPreservesOrderAndUnknowns(t *testing.T) {
	src := `{"zeta":1,"alpha":{"nested":[1,2,3]},"mid":"x","beta":null}`

	obj := NewObject()
	require.NoError(t, json.Unmarshal([]byte(src), obj))
	assert.Equal(t, []string{"zeta", "alpha", "mid", "beta"}, obj.Keys())

	out, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.JSONEq(t, src, string(out))

	// Key order survives, not just content.
	assert.Equal(t, src, string(out))
}

func TestObjectSetPreservesInsertionOrder(t *testing.T) {
	obj := NewObject()
	obj.SetString("b", "1")
	obj.SetString("a", "2")
	obj.SetString("b", "3") // update must not move the key

	assert.Equal(t, []string{"b", "a"}, obj.Keys())
	v, ok := obj.GetString("b")
	require.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestObjectGetObject(t *testing.T) {
	obj := NewObject()
	require.NoError(t, json.Unmarshal([]byte(`{"inner":{"x":1},"str":"s"}`), obj))

	inner, ok, err := obj.GetObject("inner")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, inner.Keys())

	_, ok, err = obj.GetObject("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = obj.GetObject("str")
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestObjectRejectsNonObject(t *testing.T) {
	obj := NewObject()
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), obj))
	assert.Error(t, json.Unmarshal([]byte(`"str"`), obj))
}
