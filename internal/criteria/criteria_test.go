package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sheetkit/sheetkit/internal/locale"
	"github.com/sheetkit/sheetkit/pkg/value"
)

func compile(t *testing.T, crit value.Value) *Predicate {
	t.Helper()
	return Compile(crit, locale.Default(), locale.Date1900)
}

func TestNumericComparators(t *testing.T) {
	p := compile(t, value.Text(">=10"))
	assert.True(t, p.Match(value.Number(10)))
	assert.True(t, p.Match(value.Number(11)))
	assert.False(t, p.Match(value.Number(9.99)))
	assert.False(t, p.Match(value.Text("abc")))
	assert.False(t, p.Match(value.Blank()))

	p = compile(t, value.Number(5))
	assert.True(t, p.Match(value.Number(5)))
	assert.True(t, p.Match(value.Text("5")), "numeric text matches numeric equality")
	assert.False(t, p.Match(value.Bool(true)))
}

func TestNotEqual(t *testing.T) {
	p := compile(t, value.Text("<>5"))
	assert.True(t, p.Match(value.Number(4)))
	assert.False(t, p.Match(value.Number(5)))
	assert.True(t, p.Match(value.Text("abc")), "non-numbers satisfy numeric <>")
}

func TestBlankSemantics(t *testing.T) {
	p := compile(t, value.Text(""))
	assert.True(t, p.Match(value.Blank()))
	assert.True(t, p.Match(value.Text("")))
	assert.False(t, p.Match(value.Number(0)))

	p = compile(t, value.Text("<>"))
	assert.False(t, p.Match(value.Blank()))
	assert.True(t, p.Match(value.Number(0)))
	assert.True(t, p.Match(value.Text("x")))
}

func TestWildcards(t *testing.T) {
	p := compile(t, value.Text("a*c"))
	assert.True(t, p.Match(value.Text("abc")))
	assert.True(t, p.Match(value.Text("ac")))
	assert.True(t, p.Match(value.Text("aXXXc")))
	assert.False(t, p.Match(value.Text("ab")))

	p = compile(t, value.Text("a?c"))
	assert.True(t, p.Match(value.Text("abc")))
	assert.False(t, p.Match(value.Text("ac")))

	// ~ escapes a literal wildcard
	p = compile(t, value.Text("2~*2"))
	assert.True(t, p.Match(value.Text("2*2")))
	assert.False(t, p.Match(value.Text("2X2")))
}

func TestTildeEscapes(t *testing.T) {
	assert.True(t, WildcardMatch("~~", "~"))
	assert.False(t, WildcardMatch("~~", "x"))

	// a tilde before an ordinary character stays literal
	assert.True(t, WildcardMatch("~a", "~a"))
	assert.False(t, WildcardMatch("~a", "a"))

	// a trailing lone tilde is a literal tilde
	assert.True(t, WildcardMatch("x~", "x~"))
	assert.False(t, WildcardMatch("x~", "x"))
}

func TestTextCaseInsensitive(t *testing.T) {
	p := compile(t, value.Text("Done"))
	assert.True(t, p.Match(value.Text("DONE")))
	assert.True(t, p.Match(value.Text("done")))
	assert.False(t, p.Match(value.Text("pending")))

	p = compile(t, value.Text(">m"))
	assert.True(t, p.Match(value.Text("n")))
	assert.False(t, p.Match(value.Text("a")))
}

func TestErrorCriterion(t *testing.T) {
	p := compile(t, value.Text("#N/A"))
	assert.True(t, p.Match(value.Err(value.ErrNA)))
	assert.False(t, p.Match(value.Err(value.ErrDiv0)))
	assert.False(t, p.Match(value.Number(1)))
}

func TestDateFallback(t *testing.T) {
	p := compile(t, value.Text(">1/1/2020"))
	assert.True(t, p.Match(value.Number(43900)))
	assert.False(t, p.Match(value.Number(43000)))
}

func TestBoolCriterion(t *testing.T) {
	p := compile(t, value.Bool(true))
	assert.True(t, p.Match(value.Bool(true)))
	assert.False(t, p.Match(value.Bool(false)))
	assert.False(t, p.Match(value.Number(1)), "numbers do not match boolean criteria")
}
