package pattern

import (
	"regexp"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestRegexpBasic(t *testing.T) {
	c := qt.New(t)
	expr, err := Regexp("foo*bar?", EntireString)
	c.Assert(err, qt.IsNil)
	rx := regexp.MustCompile(expr)
	c.Assert(rx.MatchString("foo-baz-barX"), qt.IsTrue)
	c.Assert(rx.MatchString("foobar"), qt.IsFalse)
}

func TestRegexpCharClass(t *testing.T) {
	c := qt.New(t)
	expr, err := Regexp("[[:digit:]]+", EntireString)
	c.Assert(err, qt.IsNil)
	rx := regexp.MustCompile(expr)
	c.Assert(rx.MatchString("123"), qt.IsTrue)
	c.Assert(rx.MatchString("12a"), qt.IsFalse)
}

func TestExtendedMatcherPositive(t *testing.T) {
	c := qt.New(t)
	m, err := ExtendedMatcher("@(foo|bar).txt", EntireString|ExtendedOperators)
	c.Assert(err, qt.IsNil)
	c.Assert(m("foo.txt"), qt.IsTrue)
	c.Assert(m("bar.txt"), qt.IsTrue)
	c.Assert(m("baz.txt"), qt.IsFalse)
}

func TestExtendedMatcherNegation(t *testing.T) {
	c := qt.New(t)
	m, err := ExtendedMatcher("!(foo).txt", EntireString|ExtendedOperators)
	c.Assert(err, qt.IsNil)
	c.Assert(m("foo.txt"), qt.IsFalse)
	c.Assert(m("bar.txt"), qt.IsTrue)
}

func TestHasMetaQuoteMeta(t *testing.T) {
	c := qt.New(t)
	c.Assert(HasMeta(`foo*bar`), qt.IsTrue)
	c.Assert(HasMeta(`foo\*bar`), qt.IsFalse)
	c.Assert(QuoteMeta("a*b"), qt.Equals, `a\*b`)
}
