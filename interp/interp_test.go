package interp_test

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/sandboxshell/vsh/interp"
	"github.com/sandboxshell/vsh/syntax"
	"github.com/sandboxshell/vsh/vfs"
)

func run(c *qt.C, src string, opts ...interp.Option) *interp.ExecResult {
	prog, err := syntax.Parse([]byte(src), "")
	c.Assert(err, qt.IsNil)
	r := interp.New(vfs.NewMemFS(nil), opts...)
	res, err := r.Run(context.Background(), prog)
	c.Assert(err, qt.IsNil)
	return res
}

// TestQuotePreservation exercises spec.md §8 property 1: a single-quoted
// string round-trips through "echo -n" byte for byte.
func TestQuotePreservation(t *testing.T) {
	c := qt.New(t)
	res := run(c, `echo -n 'a "b" $c `+"`d`"+` \e'`)
	c.Assert(res.Stdout, qt.Equals, `a "b" $c `+"`d`"+` \e`)
}

// TestDoubleQuoteExpansion exercises property 2: quoted command
// substitution yields one field, unquoted splits and globs.
func TestDoubleQuoteExpansion(t *testing.T) {
	c := qt.New(t)
	res := run(c, `f() { printf '%s\n' "$1"; }; f "$(echo one two)"`)
	c.Assert(res.Stdout, qt.Equals, "one two\n")

	res = run(c, `f() { echo "$#"; }; f $(echo one two)`)
	c.Assert(res.Stdout, qt.Equals, "2\n")
}

// TestArrayQuotingLaw exercises property 3.
func TestArrayQuotingLaw(t *testing.T) {
	c := qt.New(t)
	res := run(c, `a=(x y z); f() { echo "$#"; }; f "${a[@]}"`)
	c.Assert(res.Stdout, qt.Equals, "3\n")

	res = run(c, `a=(x y z); IFS=:; f() { echo "$#" "$1"; }; f "${a[*]}"`)
	c.Assert(res.Stdout, qt.Equals, "1 x:y:z\n")
}

// TestPrecedenceLaws exercises property 4.
func TestPrecedenceLaws(t *testing.T) {
	c := qt.New(t)
	res := run(c, `! true; echo $?`)
	c.Assert(res.Stdout, qt.Equals, "1\n")
	res = run(c, `! false; echo $?`)
	c.Assert(res.Stdout, qt.Equals, "0\n")

	// a && b || c is left-associative: false && echo a || echo b -> only b runs.
	res = run(c, `false && echo a || echo b`)
	c.Assert(res.Stdout, qt.Equals, "b\n")

	// ";" has lower precedence than "&&"/"||".
	res = run(c, `true && echo a; echo b`)
	c.Assert(res.Stdout, qt.Equals, "a\nb\n")

	// "|" binds tighter than "&&"/"||".
	res = run(c, `echo hi | grep_missing && echo unreachable || echo fallback`)
	c.Assert(res.Stdout, qt.Equals, "fallback\n")
}

// TestSubshellIsolation exercises property 5: cd/assignment/shopt inside
// (...) never leak to the parent.
func TestSubshellIsolation(t *testing.T) {
	c := qt.New(t)
	res := run(c, `x=outer; (x=inner; cd /tmp 2>/dev/null; shopt -s nullglob); echo "$x"`)
	c.Assert(res.Stdout, qt.Equals, "outer\n")
}

// TestErrexitSuppression exercises property 6: errexit does not fire
// inside condition positions.
func TestErrexitSuppression(t *testing.T) {
	c := qt.New(t)
	res := run(c, `set -e
if false; then echo no; fi
while false; do echo no; done
false || true
false && true
echo survived`)
	c.Assert(res.Stdout, qt.Equals, "survived\n")
	c.Assert(res.ExitCode, qt.Equals, 0)
}

// TestPipefailCorrectness exercises property 7.
func TestPipefailCorrectness(t *testing.T) {
	c := qt.New(t)
	res := run(c, `false | true; echo $?`)
	c.Assert(res.Stdout, qt.Equals, "0\n")

	res = run(c, `set -o pipefail; false | true; echo $?`)
	c.Assert(res.Stdout, qt.Equals, "1\n")
}

// TestParamExpansionRoundTrip exercises property 8.
func TestParamExpansionRoundTrip(t *testing.T) {
	c := qt.New(t)
	res := run(c, `v=hello; echo "${v##*}"`)
	c.Assert(res.Stdout, qt.Equals, "\n")

	res = run(c, `v=hello; echo "${v#}"`)
	c.Assert(res.Stdout, qt.Equals, "hello\n")

	res = run(c, `v=hello; echo "${v/#/}"`)
	c.Assert(res.Stdout, qt.Equals, "hello\n")

	res = run(c, `v="it's"; eval "x=${v@Q}"; echo "$x"`)
	c.Assert(res.Stdout, qt.Equals, "it's\n")
}

// TestPathnameExpansionDeterminism exercises property 9: glob matches
// come back lexicographically sorted regardless of FS iteration order.
func TestPathnameExpansionDeterminism(t *testing.T) {
	c := qt.New(t)
	prog, err := syntax.Parse([]byte(`echo /d/*`), "")
	c.Assert(err, qt.IsNil)
	fs := vfs.NewMemFS(map[string]vfs.File{
		"/d/zebra.txt": {Text: ""},
		"/d/apple.txt": {Text: ""},
		"/d/mango.txt": {Text: ""},
	})
	r := interp.New(fs)
	res, err := r.Run(context.Background(), prog)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "/d/apple.txt /d/mango.txt /d/zebra.txt\n")
}

// TestHeredocFidelity exercises property 10.
func TestHeredocFidelity(t *testing.T) {
	c := qt.New(t)
	res := run(c, "while IFS= read -r line; do echo \"$line\"; done <<'EOF'\n$HOME literal\nEOF\n")
	c.Assert(res.Stdout, qt.Equals, "$HOME literal\n")

	res = run(c, "while IFS= read -r line; do echo \"$line\"; done <<EOF\n$HOME expanded\nEOF\n", interp.WithEnv("HOME=/root"))
	c.Assert(res.Stdout, qt.Equals, "/root expanded\n")
}

// TestReadRawMode exercises property 11: a heredoc body containing a
// literal backslash (preserved bytewise by the quoted delimiter) comes
// through "read" stripped of backslashes, and through "read -r" intact.
func TestReadRawMode(t *testing.T) {
	c := qt.New(t)
	res := run(c, "read line <<'EOF'\na\\nb\nEOF\necho \"$line\"")
	c.Assert(res.Stdout, qt.Equals, "anb\n")

	res = run(c, "read -r line <<'EOF'\na\\nb\nEOF\necho \"$line\"")
	c.Assert(res.Stdout, qt.Equals, `a\nb`+"\n")
}

// TestCommandLimitExceeded exercises property 12: a script that exceeds
// MaxCommands reports a deterministic non-zero exit and preserves
// whatever stdout it already produced.
func TestCommandLimitExceeded(t *testing.T) {
	c := qt.New(t)
	res := run(c, `i=0; while true; do echo tick; i=$((i+1)); done`,
		interp.WithLimits(interp.Limits{MaxCommands: 5, MaxLoopIterations: 1_000_000, MaxCallDepth: 100, MaxExpansionSize: 1 << 20, MaxHeredocSize: 1 << 20}))
	c.Assert(res.ExitCode, qt.Not(qt.Equals), 0)
	c.Assert(res.Stdout, qt.Not(qt.Equals), "")
}

// TestEndToEndScenarios covers the ten literal input/output scenarios
// of spec.md §8.
func TestEndToEndScenarios(t *testing.T) {
	c := qt.New(t)

	res := run(c, `echo hello $NAME`, interp.WithEnv("NAME=world"))
	c.Assert(res.Stdout, qt.Equals, "hello world\n")
	c.Assert(res.ExitCode, qt.Equals, 0)

	res = run(c, `a=1; b=2; c=$((a+b)); echo $c`)
	c.Assert(res.Stdout, qt.Equals, "3\n")

	res = run(c, `for i in 1 2 3; do echo $i; done`)
	c.Assert(res.Stdout, qt.Equals, "1\n2\n3\n")

	res = run(c, `set -e; false; echo after`)
	c.Assert(res.Stdout, qt.Equals, "")
	c.Assert(res.ExitCode, qt.Equals, 1)

	res = run(c, `set -o pipefail; false | true; echo $?`)
	c.Assert(res.Stdout, qt.Equals, "1\n")

	res = run(c, `f(){ local x=1; echo $x; }; x=outer; f; echo $x`)
	c.Assert(res.Stdout, qt.Equals, "1\nouter\n")

	res = run(c, "while IFS= read -r line; do echo \"$line\"; done <<EOF\n$HOME\nEOF\n", interp.WithEnv("HOME=/root"))
	c.Assert(res.Stdout, qt.Equals, "/root\n")

	res = run(c, `arr=(a b c); echo "${arr[@]}" "${#arr[@]}"`)
	c.Assert(res.Stdout, qt.Equals, "a b c 3\n")

	res = run(c, `[[ "foo.bar" == *.bar ]] && echo yes`)
	c.Assert(res.Stdout, qt.Equals, "yes\n")

	res = run(c, `case x in a) echo A ;; *) echo other ;; esac`)
	c.Assert(res.Stdout, qt.Equals, "other\n")
}
