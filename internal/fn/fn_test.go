package fn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sheetkit/sheetkit/internal/locale"
)

func TestLookupStripsXlfnPrefix(t *testing.T) {
	want := Lookup("CONCAT")
	assert.NotNil(t, want)
	assert.Same(t, want, Lookup("_xlfn.CONCAT"))
	assert.Same(t, want, Lookup("_XLFN.concat"))
	assert.Nil(t, Lookup("_xlfn.NOSUCHFN"))
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 2.0, roundHalfAway(1.5, 0))
	assert.Equal(t, -2.0, roundHalfAway(-1.5, 0), "half rounds away from zero")
	assert.Equal(t, 1.58, roundHalfAway(1.575, 2))
	assert.Equal(t, 1.6, roundAway(1.51, 1))
	assert.Equal(t, -1.6, roundAway(-1.51, 1))
	assert.Equal(t, 1.5, roundToward(1.59, 1))
	assert.Equal(t, 120.0, roundHalfAway(123.4, -1))
}

func TestGcdLcm(t *testing.T) {
	g, _ := gcd(12, 18)
	assert.Equal(t, int64(6), g)
	l, _ := lcm(4, 6)
	assert.Equal(t, int64(12), l)
	l, _ = lcm(0, 5)
	assert.Equal(t, int64(0), l)
}

func TestExcelTrim(t *testing.T) {
	assert.Equal(t, "a b", excelTrim("  a   b  "))
	assert.Equal(t, "", excelTrim("   "))
}

func TestFormatNumber(t *testing.T) {
	loc := locale.Default()
	s, ok := formatNumber(1234.5, "#,##0.00", loc, locale.Date1900)
	assert.True(t, ok)
	assert.Equal(t, "1,234.50", s)

	s, _ = formatNumber(0.125, "0.0%", loc, locale.Date1900)
	assert.Equal(t, "12.5%", s)

	s, _ = formatNumber(-1234567.0, "#,##0", loc, locale.Date1900)
	assert.Equal(t, "-1,234,567", s)

	s, ok = formatNumber(43831, "yyyy-mm-dd", loc, locale.Date1900)
	assert.True(t, ok)
	assert.Equal(t, "2020-01-01", s)
}

func TestPercentileInc(t *testing.T) {
	nums := []float64{1, 2, 3, 4}
	v, ek := percentileInc(nums, 0.5)
	assert.Zero(t, ek)
	assert.Equal(t, 2.5, v)
	v, _ = percentileInc(nums, 0)
	assert.Equal(t, 1.0, v)
	v, _ = percentileInc(nums, 1)
	assert.Equal(t, 4.0, v)
	_, ek = percentileInc(nums, 1.5)
	assert.NotZero(t, ek)
}

func TestPowChecked(t *testing.T) {
	_, ek := powChecked(0, 0)
	assert.NotZero(t, ek)
	_, ek = powChecked(0, -1)
	assert.NotZero(t, ek)
	_, ek = powChecked(-8, 0.5)
	assert.NotZero(t, ek)
	v, ek := powChecked(-8, 3)
	assert.Zero(t, ek)
	assert.Equal(t, -512.0, v)
}
