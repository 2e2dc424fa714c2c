package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNullString(t *testing.T) {
	assert.Nil(t, nullString("", 0))
	assert.Nil(t, nullString("   ", 0))
	assert.Nil(t, nullString("NaN", 0))
	assert.Equal(t, "hello", nullString("  hello  ", 0))
	assert.Equal(t, "abc", nullString("abcdef", 3))
	// rune-based truncation keeps multibyte characters intact
	assert.Equal(t, "Straße", nullString("Straßenbau", 6))
}

func TestNullDecimal(t *testing.T) {
	assert.Nil(t, nullDecimal(""))
	assert.Nil(t, nullDecimal("NaN"))
	assert.Nil(t, nullDecimal("not-a-number"))
	// valid values pass through as strings so precision is preserved
	assert.Equal(t, "1234.56", nullDecimal(" 1234.56 "))
	assert.Equal(t, "0.0000001", nullDecimal("0.0000001"))
}

func TestNullInt(t *testing.T) {
	assert.Nil(t, nullInt(""))
	assert.Nil(t, nullInt("NaN"))
	assert.Nil(t, nullInt("three"))
	assert.Equal(t, int64(3), nullInt("3"))
	assert.Equal(t, int64(3), nullInt("3.0"))
	assert.Equal(t, int64(-7), nullInt("-7"))
}

func TestNullBool(t *testing.T) {
	assert.Nil(t, nullBool(""))
	assert.Nil(t, nullBool("NaN"))
	assert.Equal(t, true, nullBool("true"))
	assert.Equal(t, true, nullBool("TRUE"))
	assert.Equal(t, true, nullBool("1"))
	assert.Equal(t, true, nullBool("yes"))
	assert.Equal(t, false, nullBool("false"))
	assert.Equal(t, false, nullBool("0"))
	assert.Equal(t, false, nullBool("anything"))
}

func TestNullTime(t *testing.T) {
	assert.Nil(t, nullTime(""))
	assert.Nil(t, nullTime("NaN"))
	assert.Nil(t, nullTime("not a date"))

	got := nullTime("2025-03-14")
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), got)

	got = nullTime("2025-03-14T10:30:00+01:00")
	assert.Equal(t, time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC), got)

	got = nullTime("14.03.2025")
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), got)
}
