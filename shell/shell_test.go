package shell_test

import (
	"context"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/sandboxshell/vsh/interp"
	"github.com/sandboxshell/vsh/shell"
)

func TestExecBasic(t *testing.T) {
	c := qt.New(t)
	res, err := shell.Exec(context.Background(), `echo hello`)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "hello\n")
	c.Assert(res.ExitCode, qt.Equals, 0)
}

func TestExecExitCode(t *testing.T) {
	c := qt.New(t)
	res, err := shell.Exec(context.Background(), `exit 3`)
	c.Assert(err, qt.IsNil)
	c.Assert(res.ExitCode, qt.Equals, 3)
}

func TestExecParseError(t *testing.T) {
	c := qt.New(t)
	_, err := shell.Exec(context.Background(), `if then`)
	c.Assert(err, qt.ErrorMatches, "shell: parse:.*")
}

func TestExecWithEnv(t *testing.T) {
	c := qt.New(t)
	res, err := shell.Exec(context.Background(), `echo "$GREETING"`, shell.WithEnv("GREETING=hi there"))
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "hi there\n")
}

func TestExecWithFiles(t *testing.T) {
	c := qt.New(t)
	res, err := shell.Exec(context.Background(),
		`while IFS= read -r line; do echo "$line"; done < /greeting.txt`,
		shell.WithFiles(map[string]string{
			"/greeting.txt": "hello from disk\n",
		}))
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "hello from disk\n")
}

func TestSandboxPersistsState(t *testing.T) {
	c := qt.New(t)
	sb := shell.NewSandbox()

	_, err := sb.Exec(context.Background(), `x=1`)
	c.Assert(err, qt.IsNil)

	res, err := sb.Exec(context.Background(), `echo "$x"`)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "1\n")
}

func TestSandboxPersistsCwd(t *testing.T) {
	c := qt.New(t)
	sb := shell.NewSandbox(shell.WithFiles(map[string]string{
		"/work/data.txt": "payload\n",
	}))

	_, err := sb.Exec(context.Background(), `cd /work`)
	c.Assert(err, qt.IsNil)

	res, err := sb.Exec(context.Background(), `while IFS= read -r line; do echo "$line"; done < data.txt`)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "payload\n")
}

func TestWithCommandRegistersCustomCommand(t *testing.T) {
	c := qt.New(t)
	greet := func(ctx context.Context, cctx *interp.CommandContext, argv []string) (int, error) {
		cctx.Stdout.Write([]byte("custom!\n"))
		return 0, nil
	}
	res, err := shell.Exec(context.Background(), `greet`, shell.WithCommand("greet", greet))
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "custom!\n")
}

func TestWithLimitsEnforced(t *testing.T) {
	c := qt.New(t)
	res, err := shell.Exec(context.Background(),
		`while true; do :; done`,
		shell.WithLimits(interp.Limits{MaxLoopIterations: 10, MaxCommands: 1000, MaxCallDepth: 10, MaxExpansionSize: 1024, MaxHeredocSize: 1024}),
	)
	c.Assert(err, qt.IsNil)
	c.Assert(res.ExitCode, qt.Not(qt.Equals), 0)
}

func TestOptionsFromYAML(t *testing.T) {
	c := qt.New(t)
	o, err := shell.OptionsFromYAML([]byte(`
env:
  - GREETING=from-yaml
cwd: /work
files:
  /work/note.txt: "hi\n"
limits:
  maxCommands: 500
`))
	c.Assert(err, qt.IsNil)
	c.Assert(o.Env, qt.DeepEquals, []string{"GREETING=from-yaml"})
	c.Assert(o.Cwd, qt.Equals, "/work")
	c.Assert(o.Limits.MaxCommands, qt.Equals, 500)

	res, err := shell.Exec(context.Background(),
		`echo "$GREETING"; while IFS= read -r line; do echo "$line"; done < note.txt`,
		shell.FromOptions(o))
	c.Assert(err, qt.IsNil)
	c.Assert(res.Stdout, qt.Equals, "from-yaml\nhi\n")
}
