package date

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"
)

func TestParse(t *testing.T) {
	d, err := Parse("2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", d.String())

	_, err = Parse("31/01/2024")
	assert.Error(t, err)
}

func TestParseAcceptsTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 5, 10, 30, 0, 0, time.Local)
	d, err := Parse(ts.Format(time.RFC3339))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", d.String())
}

func TestCompare(t *testing.T) {
	a := New(2024, 1, 1)
	b := New(2024, 1, 2)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.After(b))
	assert.True(t, a.Equal(New(2024, 1, 1)))
	assert.Equal(t, 0, a.Compare(a))
}

func TestSameDay(t *testing.T) {
	morning := time.Date(2024, 6, 1, 0, 1, 0, 0, time.Local)
	night := time.Date(2024, 6, 1, 23, 59, 0, 0, time.Local)
	next := time.Date(2024, 6, 2, 0, 0, 0, 0, time.Local)

	assert.True(t, SameDay(morning, night))
	assert.False(t, SameDay(night, next))
}

func TestToday(t *testing.T) {
	now := time.Date(2024, 2, 29, 15, 0, 0, 0, time.Local)
	assert.Equal(t, "2024-02-29", Today(now).String())
}

func TestJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		Due *Date `json:"due"`
	}

	d := New(2025, 12, 24)
	data, err := json.Marshal(wrapper{Due: &d})
	require.NoError(t, err)
	assert.JSONEq(t, `{"due":"2025-12-24"}`, string(data))

	var got wrapper
	require.NoError(t, json.Unmarshal(data, &got))
	require.NotNil(t, got.Due)
	assert.True(t, got.Due.Equal(d))

	var empty wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"due":null}`), &empty))
	assert.Nil(t, empty.Due)
}

func TestYAMLRoundTrip(t *testing.T) {
	type wrapper struct {
		Due Date `yaml:"due"`
	}

	data, err := yaml.Marshal(wrapper{Due: New(2025, 1, 2)})
	require.NoError(t, err)
	assert.Contains(t, string(data), "2025-01-02")

	var got wrapper
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "2025-01-02", got.Due.String())
}

func TestAddDaysAndDaysUntil(t *testing.T) {
	d := New(2024, 2, 27)
	assert.Equal(t, "2024-03-01", d.AddDays(3).String())
	assert.Equal(t, "2024-02-20", d.AddDays(-7).String())

	assert.Equal(t, 3, d.DaysUntil(New(2024, 3, 1)))
	assert.Equal(t, -27, d.DaysUntil(New(2024, 1, 31)))
	assert.Equal(t, 0, d.DaysUntil(d))
}

func TestTextRoundTrip(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalText([]byte("2023-07-04")))
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2023-07-04", string(text))

	assert.Error(t, d.UnmarshalText([]byte("July 4th")))
}
