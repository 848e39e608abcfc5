package relstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMapValueScanRoundTrip(t *testing.T) {
	m := JSONMap{"confidence": 0.9, "resolved": true}
	v, err := m.Value()
	require.NoError(t, err)

	var out JSONMap
	require.NoError(t, out.Scan(v))
	assert.Equal(t, 0.9, out["confidence"])
	assert.Equal(t, true, out["resolved"])
}

func TestJSONMapScanNilYieldsEmptyMap(t *testing.T) {
	var out JSONMap
	require.NoError(t, out.Scan(nil))
	assert.Equal(t, JSONMap{}, out)
}

func TestJSONMapScanRejectsUnsupportedType(t *testing.T) {
	var out JSONMap
	err := out.Scan(42)
	assert.Error(t, err)
}

func TestStringListValueScanRoundTrip(t *testing.T) {
	l := StringList{"a", "b", "c"}
	v, err := l.Value()
	require.NoError(t, err)

	var out StringList
	require.NoError(t, out.Scan(v))
	assert.Equal(t, l, out)
}

func TestStringListScanNilYieldsEmptySlice(t *testing.T) {
	var out StringList
	require.NoError(t, out.Scan(nil))
	assert.Equal(t, StringList{}, out)
}

func TestFloatListValueScanRoundTrip(t *testing.T) {
	l := FloatList{0.1, 0.5, 0.9}
	v, err := l.Value()
	require.NoError(t, err)

	var out FloatList
	require.NoError(t, out.Scan(v))
	assert.Equal(t, l, out)
}

func TestFloatListScanAcceptsStringEncodedJSON(t *testing.T) {
	var out FloatList
	require.NoError(t, out.Scan("[1.5, 2.5]"))
	assert.Equal(t, FloatList{1.5, 2.5}, out)
}
