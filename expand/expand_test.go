package expand

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"

	"github.com/sandboxshell/vsh/syntax"
)

func mustParse(t *testing.T, src string) *syntax.Word {
	t.Helper()
	script, err := syntax.Parse([]byte(src), "test")
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	cmd := script.Stmts[0].Cmd.(*syntax.Pipeline).Cmds[0].Inner.(*syntax.SimpleCmd)
	return cmd.Words[0]
}

func TestFieldsParamDefault(t *testing.T) {
	c := qt.New(t)
	env := NewListEnviron()
	cfg := &Config{Env: env, IFS: " \t\n"}
	w := mustParse(t, `${NAME:-world}`)
	out, err := Fields(context.Background(), cfg, []*syntax.Word{w})
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.DeepEquals, []string{"world"})
}

func TestFieldsSplitting(t *testing.T) {
	c := qt.New(t)
	env := NewListEnviron("X=a b  c")
	cfg := &Config{Env: env, IFS: " \t\n"}
	w := mustParse(t, `$X`)
	out, err := Fields(context.Background(), cfg, []*syntax.Word{w})
	c.Assert(err, qt.IsNil)
	if diff := cmp.Diff([]string{"a", "b", "c"}, out); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldsQuotedNoSplit(t *testing.T) {
	c := qt.New(t)
	env := NewListEnviron("X=a b  c")
	cfg := &Config{Env: env, IFS: " \t\n"}
	w := mustParse(t, `"$X"`)
	out, err := Fields(context.Background(), cfg, []*syntax.Word{w})
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.DeepEquals, []string{"a b  c"})
}

func TestEvalArith(t *testing.T) {
	c := qt.New(t)
	env := NewListEnviron("a=2", "b=3")
	cfg := &Config{Env: env}
	script, err := syntax.Parse([]byte("$((a+b*2))"), "t")
	c.Assert(err, qt.IsNil)
	word := script.Stmts[0].Cmd.(*syntax.Pipeline).Cmds[0].Inner.(*syntax.SimpleCmd).Words[0]
	part := word.Parts[0].(*syntax.ArithExpPart)
	v, err := EvalArith(cfg, part.X)
	c.Assert(err, qt.IsNil)
	c.Assert(v, qt.Equals, int64(8))
}

func TestBracesExpansion(t *testing.T) {
	c := qt.New(t)
	w := mustParse(t, `file{1..3}.txt`)
	words := Braces(w)
	c.Assert(len(words), qt.Equals, 3)
	env := NewListEnviron()
	cfg := &Config{Env: env, IFS: " \t\n"}
	out, err := Fields(context.Background(), cfg, []*syntax.Word{w})
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.DeepEquals, []string{"file1.txt", "file2.txt", "file3.txt"})
}
