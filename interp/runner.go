// Package interp walks the syntax.Script AST spec.md §4.3 describes:
// pipelines, control flow, redirection through vfs.FS, subshells, and
// the builtin/command registries that stand in for a real os/exec,
// which this embeddable core never calls.
package interp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sandboxshell/vsh/expand"
	"github.com/sandboxshell/vsh/internal/logging"
	"github.com/sandboxshell/vsh/pattern"
	"github.com/sandboxshell/vsh/syntax"
	"github.com/sandboxshell/vsh/vfs"
)

// ExecResult is the facade-visible outcome of running a script, per
// spec.md §6.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Option configures a Runner at construction time.
type Option func(*Runner)

// WithRegistry installs a custom command registry in place of an empty one.
func WithRegistry(reg *Registry) Option {
	return func(r *Runner) { r.Registry = reg }
}

// WithLogger installs a structured logger; nil is equivalent to logging.Nop().
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) { r.Log = l }
}

// WithLimits overrides the default execution limits.
func WithLimits(l Limits) Option {
	return func(r *Runner) { r.State.Limits = l }
}

// WithEnv seeds the initial variable table from "NAME=value" pairs.
func WithEnv(pairs ...string) Option {
	return func(r *Runner) { r.State = NewState(pairs) }
}

// WithCwd sets the initial working directory.
func WithCwd(dir string) Option {
	return func(r *Runner) { r.cwd = dir }
}

// Runner is one shell instance (spec.md §3's "one instance per shell,
// one per subshell"). Command substitutions, process substitutions,
// subshells, and stages of multi-command pipelines each get their own
// *State via State.clone, sharing this Runner's FS and Registry;
// function calls push a variable scope on the same State.
type Runner struct {
	FS       vfs.FS
	Registry *Registry
	Builtins map[string]BuiltinFunc
	Log      *logging.Logger

	State *State
	cwd   string

	depth int // not read or written; function-call depth is tracked in State.CallDepth

	pendingOutSubst []outSubstJob // ">(...)" bodies awaiting their fed input, drained after the current CmdNode
}

// outSubstJob is one ">(body)" process substitution: body runs once
// the surrounding command has finished writing to path.
type outSubstJob struct {
	path string
	body *syntax.Script
}

// New builds a Runner over fs with the default (empty) command
// registry and built-in set, per spec.md §6's facade construction.
func New(fs vfs.FS, opts ...Option) *Runner {
	r := &Runner{
		FS:       fs,
		Registry: NewRegistry(),
		State:    NewState(nil),
		cwd:      "/",
		Log:      logging.Nop(),
	}
	r.Builtins = defaultBuiltins()
	for _, o := range opts {
		o(r)
	}
	if r.Log == nil {
		r.Log = logging.Nop()
	}
	r.State.Env.SetLocal("PWD", variableString(r.cwd, true))
	r.State.Env.SetLocal("IFS", variableString(" \t\n", false))
	if !r.State.Env.Get("HOME").Set {
		r.State.Env.SetLocal("HOME", variableString("/root", true))
	}
	return r
}

// ioFrame is the live stdio view a running command sees: fd 0 is
// always the reader, fds 1/2 (and any {var}-allocated fd >=10) are
// writers. Redirections produce a modified copy, never mutating the
// caller's frame, so restoring after a command is just discarding it.
type ioFrame struct {
	in      io.Reader
	writers map[int]io.Writer
	readers map[int]io.Reader
}

func (f ioFrame) clone() ioFrame {
	w := make(map[int]io.Writer, len(f.writers))
	for k, v := range f.writers {
		w[k] = v
	}
	rd := make(map[int]io.Reader, len(f.readers))
	for k, v := range f.readers {
		rd[k] = v
	}
	return ioFrame{in: f.in, writers: w, readers: rd}
}

func (f ioFrame) stdout() io.Writer {
	if w, ok := f.writers[1]; ok {
		return w
	}
	return io.Discard
}

func (f ioFrame) stderr() io.Writer {
	if w, ok := f.writers[2]; ok {
		return w
	}
	return io.Discard
}

func (f ioFrame) stdin() io.Reader {
	if f.in != nil {
		return f.in
	}
	if r, ok := f.readers[0]; ok {
		return r
	}
	return strings.NewReader("")
}

// Run parses nothing itself (the caller already has a *syntax.Script)
// and executes every top-level statement, returning the accumulated
// stdout/stderr and the final exit code, per spec.md §6.
func (r *Runner) Run(ctx context.Context, script *syntax.Script) (*ExecResult, error) {
	var out, errOut bytes.Buffer
	frame := ioFrame{
		writers: map[int]io.Writer{1: &out, 2: &errOut},
		readers: map[int]io.Reader{},
	}
	code := r.runStmts(ctx, script.Stmts, frame)
	return &ExecResult{Stdout: out.String(), Stderr: errOut.String(), ExitCode: code}, nil
}

// runStmts executes a statement list in the current scope/frame,
// honoring break/continue/return/exit signals as they arise.
func (r *Runner) runStmts(ctx context.Context, stmts []*syntax.Stmt, frame ioFrame) int {
	code := 0
	for _, st := range stmts {
		if r.State.signal != sigNone {
			break
		}
		code = r.runStmt(ctx, st, frame)
		if r.checkErrexit(code) {
			r.State.signal = sigExit
			r.State.exitCode = code
			break
		}
	}
	return code
}

// control-flow signal kinds, field-based rather than panic-based (the
// parser's panic/recover is reserved for parse errors, not normal
// control transfer), matching the teacher's breakEnclosing/contnEnclosing
// counters in spirit.
type signalKind int

const (
	sigNone signalKind = iota
	sigBreak
	sigContinue
	sigReturn
	sigExit
)

func (r *Runner) checkErrexit(code int) bool {
	if r.State.suppressErrexit {
		r.State.suppressErrexit = false
		return false
	}
	if !r.State.Options.Errexit {
		return false
	}
	if code == 0 || r.State.InCondition {
		return false
	}
	return r.State.signal == sigNone
}

func (r *Runner) runStmt(ctx context.Context, st *syntax.Stmt, frame ioFrame) int {
	r.State.CommandCount++
	if r.State.Limits.MaxCommands > 0 && r.State.CommandCount > r.State.Limits.MaxCommands {
		fmt.Fprintln(frame.stderr(), "vsh: command count limit exceeded")
		r.State.signal = sigExit
		r.State.exitCode = 1
		return 1
	}
	return r.runCommand(ctx, st.Cmd, frame)
}

func (r *Runner) runCommand(ctx context.Context, cmd syntax.Command, frame ioFrame) int {
	switch c := cmd.(type) {
	case *syntax.BinaryCmd:
		return r.runBinary(ctx, c, frame)
	case *syntax.Pipeline:
		return r.runPipeline(ctx, c, frame)
	}
	fmt.Fprintf(frame.stderr(), "vsh: unsupported command node %T\n", cmd)
	return 2
}

// runBinary evaluates an "&&"/"||" pair. Per spec.md §8 property 6, a
// failing left-hand side that short-circuits the right-hand side is
// exempt from errexit — only the command actually following the final
// "&&"/"||" in the list is subject to it — so a short-circuit return
// sets suppressErrexit for the enclosing runStmts call to consume.
func (r *Runner) runBinary(ctx context.Context, b *syntax.BinaryCmd, frame ioFrame) int {
	left := r.runCommand(ctx, b.X.Cmd, frame)
	if r.State.signal != sigNone {
		return left
	}
	switch b.Op {
	case syntax.AndAnd:
		if left != 0 {
			r.State.suppressErrexit = true
			return left
		}
	case syntax.OrOr:
		if left == 0 {
			r.State.suppressErrexit = true
			return left
		}
	}
	// A nested short-circuit inside X (e.g. "a && b || c" where the
	// inner "a && b" short-circuited) no longer applies once execution
	// continues to Y: Y, not X, is now the list's last command.
	r.State.suppressErrexit = false
	return r.runCommand(ctx, b.Y.Cmd, frame)
}

// runPipeline runs each stage of p in turn, piping stage N's buffered
// stdout into stage N+1's stdin. Per spec.md §4.3, every stage runs in
// its own isolated subshell state — the same copy-on-write State.clone
// runSubshell uses for "(...)" — except the last stage when "shopt -s
// lastpipe" is set and that stage is a bare builtin invocation, which
// then runs against the live Runner/State so its mutations (e.g. a
// trailing "| read line") are visible afterward. A pipeline of a single
// command is not isolated: it runs against the live Runner/State.
func (r *Runner) runPipeline(ctx context.Context, p *syntax.Pipeline, frame ioFrame) int {
	n := len(p.Cmds)
	var code int
	var rightmostNonZero int
	in := frame.stdin()
	for i, cn := range p.Cmds {
		last := i == n-1
		stageFrame := frame.clone()
		var capture *bytes.Buffer
		if !last {
			capture = &bytes.Buffer{}
			stageFrame.writers[1] = capture
		}
		stageFrame.in = in

		stage := r
		isolated := n > 1 && !(last && r.State.Shopt.Lastpipe && r.stageIsBuiltin(cn))
		if isolated {
			child := *r
			child.State = r.State.clone()
			stage = &child
		}
		code = stage.runCmdNode(ctx, cn, stageFrame)
		if isolated && stage.State.signal == sigExit {
			// exit inside an isolated stage only terminates that stage,
			// matching runSubshell's "(...)" handling.
			code = stage.State.exitCode
		}
		if code != 0 {
			rightmostNonZero = code
		}
		if capture != nil {
			in = capture
		}
		if !isolated && r.State.signal != sigNone {
			break
		}
	}
	if p.Negated {
		if code == 0 {
			code = 1
		} else {
			code = 0
		}
	} else if r.State.Options.Pipefail && rightmostNonZero != 0 {
		code = rightmostNonZero
	}
	r.State.LastExit = code
	return code
}

// stageIsBuiltin reports whether cn is a simple command whose literal
// (unexpanded) command name names a registered builtin, for the
// "lastpipe" exemption above. Only a plain literal name counts —
// anything requiring expansion to resolve runs isolated, same as bash.
func (r *Runner) stageIsBuiltin(cn *syntax.CmdNode) bool {
	sc, ok := cn.Inner.(*syntax.SimpleCmd)
	if !ok || len(sc.Words) == 0 {
		return false
	}
	w := sc.Words[0]
	if len(w.Parts) != 1 {
		return false
	}
	lit, ok := w.Parts[0].(*syntax.Lit)
	if !ok {
		return false
	}
	_, ok = r.Builtins[lit.Value]
	return ok
}

func (r *Runner) runCmdNode(ctx context.Context, cn *syntax.CmdNode, frame ioFrame) int {
	rframe, cleanup, err := r.applyRedirects(ctx, cn.Redirs, frame)
	if err != nil {
		fmt.Fprintf(frame.stderr(), "vsh: %v\n", err)
		return 1
	}
	defer cleanup()
	code := r.runCommandBody(ctx, cn.Inner, rframe)
	r.drainProcSubst(ctx)
	return code
}

// procSubstFunc backs expand.Config.ProcSubst: "<(body)" runs body
// synchronously (matching the deterministic buffered execution model
// already used for pipelines) and materializes its output as a vfs
// file; ">(body)" allocates the path and defers running body, fed from
// whatever the surrounding command writes there, until drainProcSubst
// runs after the command finishes.
func (r *Runner) procSubstFunc(ctx context.Context, in bool, body *syntax.Script) (string, error) {
	*r.State.procSeq++
	path := fmt.Sprintf("/tmp/procsubst/%d", *r.State.procSeq)
	if err := r.FS.Mkdir("/tmp/procsubst", true); err != nil {
		return "", err
	}
	if in {
		out, code := r.execCapture(ctx, body.Stmts)
		r.State.LastExit = code
		if err := r.FS.WriteFile(path, []byte(out), 0o600); err != nil {
			return "", err
		}
		return path, nil
	}
	if err := r.FS.WriteFile(path, nil, 0o600); err != nil {
		return "", err
	}
	r.pendingOutSubst = append(r.pendingOutSubst, outSubstJob{path: path, body: body})
	return path, nil
}

func (r *Runner) drainProcSubst(ctx context.Context) {
	jobs := r.pendingOutSubst
	r.pendingOutSubst = nil
	for _, j := range jobs {
		content, _ := r.FS.ReadFileBytes(j.path)
		child := *r
		child.State = r.State.clone()
		frame := ioFrame{
			in:      bytes.NewReader(content),
			writers: map[int]io.Writer{1: io.Discard, 2: io.Discard},
			readers: map[int]io.Reader{0: bytes.NewReader(content)},
		}
		child.runStmts(ctx, j.body.Stmts, frame)
		_ = r.FS.Remove(j.path, false, true)
	}
}

func (r *Runner) runCommandBody(ctx context.Context, body syntax.CommandBody, frame ioFrame) int {
	switch b := body.(type) {
	case *syntax.SimpleCmd:
		return r.runSimpleCmd(ctx, b, frame)
	case *syntax.If:
		return r.runIf(ctx, b, frame)
	case *syntax.While:
		return r.runWhile(ctx, b, frame)
	case *syntax.For:
		return r.runFor(ctx, b, frame)
	case *syntax.ForC:
		return r.runForC(ctx, b, frame)
	case *syntax.Case:
		return r.runCase(ctx, b, frame)
	case *syntax.FuncDecl:
		r.State.Functions[b.Name] = b
		return 0
	case *syntax.Group:
		return r.runStmts(ctx, b.Body.Stmts, frame)
	case *syntax.Subshell:
		return r.runSubshell(ctx, b, frame)
	case *syntax.ArithCmd:
		cfg := r.expandConfig(ctx)
		v, err := expand.EvalArith(cfg, b.X)
		if err != nil {
			fmt.Fprintf(frame.stderr(), "vsh: %v\n", err)
			return 1
		}
		if v == 0 {
			return 1
		}
		return 0
	case *syntax.TestCmd:
		tcfg := r.testConfig(ctx)
		v, err := expand.EvalTest(ctx, tcfg, b.X)
		if err != nil {
			fmt.Fprintf(frame.stderr(), "vsh: %v\n", err)
			return 1
		}
		if v {
			return 0
		}
		return 1
	}
	fmt.Fprintf(frame.stderr(), "vsh: unsupported command body %T\n", body)
	return 2
}

func (r *Runner) runIf(ctx context.Context, n *syntax.If, frame ioFrame) int {
	wasCond := r.State.InCondition
	r.State.InCondition = true
	code := r.runStmts(ctx, n.Cond.Stmts, frame)
	r.State.InCondition = wasCond
	if r.State.signal != sigNone {
		return code
	}
	if code == 0 {
		return r.runStmts(ctx, n.Then.Stmts, frame)
	}
	for _, el := range n.Elifs {
		r.State.InCondition = true
		code = r.runStmts(ctx, el.Cond.Stmts, frame)
		r.State.InCondition = wasCond
		if r.State.signal != sigNone {
			return code
		}
		if code == 0 {
			return r.runStmts(ctx, el.Then.Stmts, frame)
		}
	}
	if n.Else != nil {
		return r.runStmts(ctx, n.Else.Stmts, frame)
	}
	return 0
}

func (r *Runner) runWhile(ctx context.Context, n *syntax.While, frame ioFrame) int {
	r.State.LoopDepth++
	defer func() { r.State.LoopDepth-- }()
	code := 0
	for {
		r.State.IterationCount++
		if r.State.Limits.MaxLoopIterations > 0 && r.State.IterationCount > r.State.Limits.MaxLoopIterations {
			fmt.Fprintln(frame.stderr(), "vsh: loop iteration limit exceeded")
			r.State.signal = sigExit
			r.State.exitCode = 1
			return 1
		}
		wasCond := r.State.InCondition
		r.State.InCondition = true
		condCode := r.runStmts(ctx, n.Cond.Stmts, frame)
		r.State.InCondition = wasCond
		if r.State.signal != sigNone {
			return condCode
		}
		truthy := condCode == 0
		if n.Until {
			truthy = !truthy
		}
		if !truthy {
			break
		}
		code = r.runStmts(ctx, n.Body.Stmts, frame)
		if r.consumeLoopSignal() {
			break
		}
	}
	return code
}

// consumeLoopSignal handles a break/continue raised inside the loop
// body just executed: it decrements the pending N and reports whether
// the enclosing loop should stop iterating.
func (r *Runner) consumeLoopSignal() bool {
	switch r.State.signal {
	case sigBreak:
		r.State.breakN--
		if r.State.breakN <= 0 {
			r.State.signal = sigNone
		}
		return true
	case sigContinue:
		r.State.contN--
		if r.State.contN <= 0 {
			r.State.signal = sigNone
			return false
		}
		return true
	case sigReturn, sigExit:
		return true
	}
	return false
}

func (r *Runner) runFor(ctx context.Context, n *syntax.For, frame ioFrame) int {
	cfg := r.expandConfig(ctx)
	var words []string
	if n.Words == nil {
		words = append([]string(nil), r.State.Positional...)
	} else {
		fs, err := expand.Fields(ctx, cfg, n.Words)
		if err != nil {
			fmt.Fprintf(frame.stderr(), "vsh: %v\n", err)
			return 1
		}
		words = fs
	}
	r.State.LoopDepth++
	defer func() { r.State.LoopDepth-- }()
	code := 0
	for _, w := range words {
		r.State.IterationCount++
		if r.State.Limits.MaxLoopIterations > 0 && r.State.IterationCount > r.State.Limits.MaxLoopIterations {
			fmt.Fprintln(frame.stderr(), "vsh: loop iteration limit exceeded")
			r.State.signal = sigExit
			r.State.exitCode = 1
			return 1
		}
		_ = r.State.Env.Set(n.Name, variableString(w, false))
		code = r.runStmts(ctx, n.Body.Stmts, frame)
		if r.consumeLoopSignal() {
			break
		}
	}
	return code
}

func (r *Runner) runForC(ctx context.Context, n *syntax.ForC, frame ioFrame) int {
	cfg := r.expandConfig(ctx)
	if n.Init != nil {
		if _, err := expand.EvalArith(cfg, n.Init); err != nil {
			fmt.Fprintf(frame.stderr(), "vsh: %v\n", err)
			return 1
		}
	}
	r.State.LoopDepth++
	defer func() { r.State.LoopDepth-- }()
	code := 0
	for {
		if n.Cond != nil {
			v, err := expand.EvalArith(r.expandConfig(ctx), n.Cond)
			if err != nil {
				fmt.Fprintf(frame.stderr(), "vsh: %v\n", err)
				return 1
			}
			if v == 0 {
				break
			}
		}
		r.State.IterationCount++
		if r.State.Limits.MaxLoopIterations > 0 && r.State.IterationCount > r.State.Limits.MaxLoopIterations {
			fmt.Fprintln(frame.stderr(), "vsh: loop iteration limit exceeded")
			r.State.signal = sigExit
			r.State.exitCode = 1
			return 1
		}
		code = r.runStmts(ctx, n.Body.Stmts, frame)
		if r.consumeLoopSignal() {
			break
		}
		if n.Post != nil {
			if _, err := expand.EvalArith(r.expandConfig(ctx), n.Post); err != nil {
				fmt.Fprintf(frame.stderr(), "vsh: %v\n", err)
				return 1
			}
		}
	}
	return code
}

func (r *Runner) runCase(ctx context.Context, n *syntax.Case, frame ioFrame) int {
	cfg := r.expandConfig(ctx)
	subject, err := expand.Literal(ctx, cfg, n.Subject)
	if err != nil {
		fmt.Fprintf(frame.stderr(), "vsh: %v\n", err)
		return 1
	}
	code := 0
	matchedAny := false
	for ai, arm := range n.Arms {
		if !matchedAny {
			for _, pw := range arm.Patterns {
				pat, err := expand.Literal(ctx, cfg, pw)
				if err != nil {
					continue
				}
				if r.caseMatches(subject, pat) {
					matchedAny = true
					break
				}
			}
			if !matchedAny {
				continue
			}
		}
		code = r.runStmts(ctx, arm.Body.Stmts, frame)
		if r.State.signal != sigNone {
			return code
		}
		switch arm.Term {
		case syntax.CaseBreak:
			return code
		case syntax.CaseFallthru:
			continue
		case syntax.CaseTestNext:
			matchedAny = false
			if ai == len(n.Arms)-1 {
				return code
			}
			continue
		}
	}
	return code
}

func (r *Runner) caseMatches(subject, pat string) bool {
	mode := pattern.EntireString
	if r.State.Shopt.Extglob {
		mode |= pattern.ExtendedOperators
	}
	if r.State.Shopt.Nocasematch {
		mode |= pattern.NoGlobCase
	}
	m, err := pattern.ExtendedMatcher(pat, mode)
	if err != nil {
		return subject == pat
	}
	return m(subject)
}

func (r *Runner) runSubshell(ctx context.Context, n *syntax.Subshell, frame ioFrame) int {
	child := *r
	child.State = r.State.clone()
	code := child.runStmts(ctx, n.Body.Stmts, frame)
	if child.State.signal == sigExit {
		// exit inside "( ... )" only terminates the subshell.
		return child.State.exitCode
	}
	return code
}

// execCapture runs stmts in a cloned state with stdout captured,
// returning the captured text; used by command substitution and
// process substitution.
func (r *Runner) execCapture(ctx context.Context, stmts []*syntax.Stmt) (string, int) {
	child := *r
	child.State = r.State.clone()
	var buf bytes.Buffer
	frame := ioFrame{writers: map[int]io.Writer{1: &buf, 2: &buf}, readers: map[int]io.Reader{}}
	code := child.runStmts(ctx, stmts, frame)
	if child.State.signal == sigExit {
		code = child.State.exitCode
	}
	return buf.String(), code
}

func (r *Runner) cmdSubstFunc(ctx context.Context, body *syntax.Script) (string, error) {
	out, code := r.execCapture(ctx, body.Stmts)
	r.State.LastExit = code
	return out, nil
}

func (r *Runner) readDirNames(dir string) ([]string, error) {
	entries, err := r.FS.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names, nil
}

func (r *Runner) homeDir(user string) (string, bool) {
	if user != "" {
		return "", false
	}
	vr := r.State.Env.Get("HOME")
	if vr.Set {
		return vr.Str, true
	}
	return "", false
}

func (r *Runner) optionFlagsString() string {
	var b strings.Builder
	add := func(on bool, ch byte) {
		if on {
			b.WriteByte(ch)
		}
	}
	add(r.State.Options.Errexit, 'e')
	add(r.State.Options.Nounset, 'u')
	add(r.State.Options.Xtrace, 'x')
	add(r.State.Options.Verbose, 'v')
	add(r.State.Options.Noclobber, 'C')
	add(r.State.Options.Allexport, 'a')
	return b.String()
}

func (r *Runner) expandConfig(ctx context.Context) *expand.Config {
	ifsVal := " \t\n"
	if v := r.State.Env.Get("IFS"); v.Set {
		ifsVal = v.Str
	}
	return &expand.Config{
		Env:         r.State.Env,
		IFS:         ifsVal,
		NoUnset:     r.State.Options.Nounset,
		NoGlob:      r.State.Options.Noglob,
		NoCaseGlob:  r.State.Shopt.Nocaseglob,
		ExtGlob:     r.State.Shopt.Extglob,
		GlobStar:    r.State.Shopt.Globstar,
		NullGlob:    r.State.Shopt.Nullglob,
		FailGlob:    r.State.Shopt.Failglob,
		CmdSubst:    r.cmdSubstFunc,
		ProcSubst:   r.procSubstFunc,
		ReadDir:     r.readDirNames,
		HomeDir:     r.homeDir,
		Params:      r.State.Positional,
		Arg0:        r.State.Arg0,
		ExitStatus:  r.State.LastExit,
		ShellPID:    int(r.State.bashPid()),
		BgPID:       r.State.LastBgPID,
		OptionFlags: r.optionFlagsString(),
	}
}

func (r *Runner) testConfig(ctx context.Context) *expand.TestConfig {
	return &expand.TestConfig{
		Config: r.expandConfig(ctx),
		Stat:   r.statFunc,
	}
}

func (r *Runner) statFunc(path string) (isDir, isRegular, isSymlink bool, size int64, exists bool) {
	abs := r.FS.ResolvePath(r.cwd, path)
	info, err := r.FS.Lstat(abs)
	if err != nil {
		return false, false, false, 0, false
	}
	return info.IsDir, !info.IsDir && !info.IsSymlink, info.IsSymlink, info.Size, true
}

// runSimpleCmd expands the command name and arguments, applies
// temporary assignments, and dispatches to a function, builtin, or
// registered command in that order, per spec.md §4.3/§4.6.
func (r *Runner) runSimpleCmd(ctx context.Context, sc *syntax.SimpleCmd, frame ioFrame) int {
	cfg := r.expandConfig(ctx)

	if len(sc.Words) == 0 {
		// Standalone assignment(s): permanent in the current scope.
		for _, a := range sc.Assigns {
			if err := r.applyAssign(ctx, cfg, a, false); err != nil {
				fmt.Fprintf(frame.stderr(), "vsh: %v\n", err)
				return 1
			}
		}
		return 0
	}

	argv, err := expand.Fields(ctx, cfg, sc.Words)
	if err != nil {
		fmt.Fprintf(frame.stderr(), "vsh: %v\n", err)
		return 1
	}
	if len(argv) == 0 {
		return 0
	}

	var restores []func()
	for _, a := range sc.Assigns {
		restore, err := r.applyTempAssign(ctx, cfg, a)
		if err != nil {
			fmt.Fprintf(frame.stderr(), "vsh: %v\n", err)
			return 1
		}
		restores = append(restores, restore)
	}
	defer func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}()

	name := argv[0]
	args := argv[1:]

	if fn, ok := r.State.Functions[name]; ok {
		return r.callFunction(ctx, fn, args, frame)
	}
	if b, ok := r.Builtins[name]; ok {
		return b(ctx, r, &frame, argv)
	}
	if resolved, ok := r.State.HashCache.Get(name); ok {
		name = resolved
	}
	if cf, ok := r.Registry.Lookup(name); ok {
		r.State.HashCache.Add(argv[0], name)
		cctx := &CommandContext{Stdin: frame.stdin(), Stdout: frame.stdout(), Stderr: frame.stderr(), Dir: r.cwd, Runner: r}
		code, err := cf(ctx, cctx, argv)
		if err != nil {
			fmt.Fprintf(frame.stderr(), "vsh: %s: %v\n", name, err)
			if code == 0 {
				code = 1
			}
		}
		return code
	}
	fmt.Fprintf(frame.stderr(), "vsh: %s: command not found\n", name)
	return 127
}

func (r *Runner) callFunction(ctx context.Context, fn *syntax.FuncDecl, args []string, frame ioFrame) int {
	r.State.CallDepth++
	if r.State.Limits.MaxCallDepth > 0 && r.State.CallDepth > r.State.Limits.MaxCallDepth {
		r.State.CallDepth--
		fmt.Fprintln(frame.stderr(), "vsh: function call depth exceeded")
		return 1
	}
	savedPositional := r.State.Positional
	r.State.Positional = args
	r.State.FuncName = append(r.State.FuncName, fn.Name)
	r.State.Env.pushScope()
	code := r.runStmts(ctx, fn.Body.Stmts, frame)
	r.State.Env.popScope()
	r.State.FuncName = r.State.FuncName[:len(r.State.FuncName)-1]
	r.State.Positional = savedPositional
	r.State.CallDepth--
	if r.State.signal == sigReturn {
		r.State.signal = sigNone
		code = r.State.exitCode
	}
	return code
}

// applyAssign performs one permanent assignment (scalar, append,
// indexed, or array literal), used for standalone assignment
// statements.
func (r *Runner) applyAssign(ctx context.Context, cfg *expand.Config, a *syntax.Assign, temp bool) error {
	if !isValidName(a.Name) {
		return fmt.Errorf("%s: not a valid identifier", a.Name)
	}
	if a.Array != nil {
		list := make([]string, 0, len(a.Array))
		var assoc map[string]string
		isAssoc := false
		for i, w := range a.Array {
			v, err := expand.Literal(ctx, cfg, w)
			if err != nil {
				return err
			}
			if i < len(a.ArrayKeys) && a.ArrayKeys[i] != nil {
				isAssoc = true
				k, err := expand.Literal(ctx, cfg, a.ArrayKeys[i])
				if err != nil {
					return err
				}
				if assoc == nil {
					assoc = map[string]string{}
				}
				assoc[k] = v
			} else {
				list = append(list, v)
			}
		}
		if isAssoc {
			return r.State.Env.Set(a.Name, expand.Variable{Set: true, Kind: expand.Assoc, Map: assoc})
		}
		return r.State.Env.Set(a.Name, expand.Variable{Set: true, Kind: expand.Indexed, List: list})
	}

	val := ""
	if a.Value != nil {
		v, err := expand.Literal(ctx, cfg, a.Value)
		if err != nil {
			return err
		}
		val = v
	}
	if a.Index != nil {
		idx, err := expand.Literal(ctx, cfg, a.Index)
		if err != nil {
			return err
		}
		return r.setArrayElement(a.Name, idx, val, a.Append)
	}
	if a.Append {
		cur := r.State.Env.Get(a.Name)
		if cur.Kind == expand.Indexed {
			list := append(append([]string(nil), cur.List...), val)
			return r.State.Env.Set(a.Name, expand.Variable{Set: true, Kind: expand.Indexed, List: list})
		}
		val = cur.Str + val
	}
	return r.State.Env.Set(a.Name, expand.Variable{Set: true, Kind: expand.String, Str: val})
}

func (r *Runner) setArrayElement(name, idx, val string, appendMode bool) error {
	cur := r.State.Env.Get(name)
	if n, err := strconv.Atoi(idx); err == nil {
		list := append([]string(nil), cur.List...)
		for len(list) <= n {
			list = append(list, "")
		}
		if appendMode {
			list[n] += val
		} else {
			list[n] = val
		}
		return r.State.Env.Set(name, expand.Variable{Set: true, Kind: expand.Indexed, List: list})
	}
	m := map[string]string{}
	for k, v := range cur.Map {
		m[k] = v
	}
	if appendMode {
		m[idx] += val
	} else {
		m[idx] = val
	}
	return r.State.Env.Set(name, expand.Variable{Set: true, Kind: expand.Assoc, Map: m})
}

// applyTempAssign sets a binding for the duration of one command
// invocation and returns a restore func, per spec.md §4.3's
// "NAME=value CMD args" temporary-scope rule.
func (r *Runner) applyTempAssign(ctx context.Context, cfg *expand.Config, a *syntax.Assign) (func(), error) {
	prev := r.State.Env.Get(a.Name)
	hadPrev := prev.Set
	if err := r.applyAssign(ctx, cfg, a, true); err != nil {
		return func() {}, err
	}
	return func() {
		if hadPrev {
			_ = r.State.Env.Set(a.Name, prev)
		} else {
			r.State.Env.Unset(a.Name)
		}
	}, nil
}
