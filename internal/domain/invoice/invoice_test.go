package invoice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	day := time.Date(2026, time.March, 7, 15, 4, 5, 0, time.UTC)

	assert.Equal(t, "FAC-20260307-00001", Code(day, 1))
	assert.Equal(t, "FAC-20260307-00042", Code(day, 42))
	assert.Equal(t, "FAC-20260307-99999", Code(day, 99999))
}

func TestCode_SequenceAboveWidth(t *testing.T) {
	day := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	// Padding widens instead of truncating past five digits.
	assert.Equal(t, "FAC-20260101-100000", Code(day, 100000))
}

func TestCode_DayBoundary(t *testing.T) {
	before := time.Date(2026, time.December, 31, 23, 59, 59, 0, time.UTC)
	after := time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "FAC-20261231-00007", Code(before, 7))
	assert.Equal(t, "FAC-20270101-00001", Code(after, 1))
}
