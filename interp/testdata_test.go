package interp_test

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/rogpeppe/go-internal/txtar"

	"github.com/sandboxshell/vsh/interp"
	"github.com/sandboxshell/vsh/syntax"
	"github.com/sandboxshell/vsh/vfs"
)

// TestGoldenScripts runs every testdata/*.txtar fixture: each archive's
// "script.sh" file is executed fresh and its stdout/exit code compared
// against the "stdout"/"exit" files ("exit" defaults to "0" if absent).
// This is the in-process equivalent of shfmt's testscript-driven golden
// tests (cmd/shfmt/main_test.go): that harness shells out to a real
// subprocess binary, which has no analogue here since this module never
// spawns one, so txtar.Parse is used directly against interp.Runner.
func TestGoldenScripts(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, paths, qt.Not(qt.HasLen), 0)

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			c := qt.New(t)
			ar, err := txtar.ParseFile(path)
			c.Assert(err, qt.IsNil)

			var script, wantStdout, wantExit string
			haveExit := false
			for _, f := range ar.Files {
				switch f.Name {
				case "script.sh":
					script = string(f.Data)
				case "stdout":
					wantStdout = string(f.Data)
				case "exit":
					wantExit = strings.TrimSpace(string(f.Data))
					haveExit = true
				}
			}
			c.Assert(script, qt.Not(qt.Equals), "", qt.Commentf("%s: missing script.sh", path))

			prog, err := syntax.Parse([]byte(script), path)
			c.Assert(err, qt.IsNil)
			r := interp.New(vfs.NewMemFS(nil))
			res, err := r.Run(context.Background(), prog)
			c.Assert(err, qt.IsNil)

			c.Assert(res.Stdout, qt.Equals, wantStdout)
			wantCode := 0
			if haveExit {
				wantCode, err = strconv.Atoi(wantExit)
				c.Assert(err, qt.IsNil)
			}
			c.Assert(res.ExitCode, qt.Equals, wantCode)
		})
	}
}
