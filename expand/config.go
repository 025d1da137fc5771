package expand

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandboxshell/vsh/syntax"
)

// MaxRegexSteps holds a step budget for =~ matching. EvalTest does not
// consult it: =~ compiles and matches with the standard regexp package,
// whose matching time is linear in the input, and no step count is
// applied.
var MaxRegexSteps = 1_000_000

// MaxExpansionSize holds a size cap for expanded fields. Fields and
// Literal do not consult it: expansion results are not size-checked.
var MaxExpansionSize = 8 << 20 // 8 MiB

// CmdSubstFunc runs a command-substitution body and returns its
// collected stdout; the interpreter supplies this so expand never
// needs to know about interp.Runner.
type CmdSubstFunc func(ctx context.Context, body *syntax.Script) (string, error)

// ProcSubstFunc runs a "<(body)" or ">(body)" process substitution and
// returns the vfs path the word expands to; in is true for the input
// ("<(") form. The interpreter materializes this over its vfs.FS
// rather than a real anonymous pipe/fd, per spec.md's non-goal on real
// process/fd plumbing.
type ProcSubstFunc func(ctx context.Context, in bool, body *syntax.Script) (string, error)

// Config bundles everything the expansion pipeline, the arithmetic
// evaluator, and the test evaluator need from the surrounding
// interpreter state.
type Config struct {
	Env        WriteEnviron
	IFS        string
	NoUnset    bool
	NoGlob     bool
	NoCaseGlob bool
	ExtGlob    bool
	GlobStar   bool
	NullGlob   bool
	FailGlob   bool

	CmdSubst  CmdSubstFunc
	ProcSubst ProcSubstFunc
	ReadDir   func(dir string) ([]string, error) // names only, for pathname expansion
	HomeDir   func(user string) (string, bool)

	Params []string // $1, $2, ... (positional parameters)

	Arg0       string // $0
	ExitStatus int    // $?
	ShellPID   int    // $$
	BgPID      int    // $!
	OptionFlags string // $-

	ErrUnsetParam func(name string) error
}

// ErrUnset is returned when nounset is active and an unset parameter
// is referenced without a ":-"/":=" default.
var ErrUnset = errors.New("unbound variable")

func unsetErr(cfg *Config, name string) error {
	if cfg.ErrUnsetParam != nil {
		return cfg.ErrUnsetParam(name)
	}
	return fmt.Errorf("%s: %w", name, ErrUnset)
}
