// Package shell is the embedding facade over interp.Runner and
// vfs.FS: a one-shot Exec for a single script, and a stateful Sandbox
// that preserves interpreter state (variables, functions, cwd, ...)
// across repeated calls, per spec.md §6. It never touches the host
// filesystem or a real process table; scripts run entirely against an
// in-memory vfs.MemFS and the in-process Command Registry.
package shell

import (
	"context"
	"fmt"

	"github.com/sandboxshell/vsh/interp"
	"github.com/sandboxshell/vsh/internal/logging"
	"github.com/sandboxshell/vsh/syntax"
	"github.com/sandboxshell/vsh/vfs"
)

// Options configures a one-shot Exec or a Sandbox's construction.
type Options struct {
	Env   []string
	Cwd   string
	Files map[string]string // seed files for the in-memory FS: path -> text content

	Limits interp.Limits

	// Commands registers additional external-looking commands beyond
	// the builtin set; interp.BuiltinFunc itself is not exposed here
	// since its ioFrame parameter is an interp-internal type that an
	// embedding package cannot implement.
	Commands map[string]interp.CommandFunc

	Logger *logging.Logger

	// NetworkPolicy is a placeholder policy string. It is stored on
	// Options only: buildRunner does not pass it to the interp.Runner,
	// so CommandFuncs cannot read it from there. The shell core itself
	// performs no network I/O (spec.md §1's non-goal list), so nothing
	// here enforces it.
	NetworkPolicy string
}

// Option mutates an Options value being built up by Exec/NewSandbox.
type Option func(*Options)

// WithEnv seeds the initial variable table from "NAME=value" pairs.
func WithEnv(pairs ...string) Option {
	return func(o *Options) { o.Env = pairs }
}

// WithCwd sets the initial working directory.
func WithCwd(dir string) Option {
	return func(o *Options) { o.Cwd = dir }
}

// WithFiles seeds the in-memory filesystem with path -> text content.
func WithFiles(files map[string]string) Option {
	return func(o *Options) { o.Files = files }
}

// WithLimits overrides the default execution limits.
func WithLimits(l interp.Limits) Option {
	return func(o *Options) { o.Limits = l }
}

// WithCommand registers a custom CommandFunc under name.
func WithCommand(name string, fn interp.CommandFunc) Option {
	return func(o *Options) {
		if o.Commands == nil {
			o.Commands = map[string]interp.CommandFunc{}
		}
		o.Commands[name] = fn
	}
}

// WithLogger installs a structured logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithNetworkPolicy records an embedder-defined policy string in
// Options.NetworkPolicy; it is not passed on to the interp.Runner.
func WithNetworkPolicy(policy string) Option {
	return func(o *Options) { o.NetworkPolicy = policy }
}

// FromOptions turns an already-built Options value (e.g. one decoded
// via OptionsFromYAML) into a single Option, so it composes with the
// functional options above.
func FromOptions(o Options) Option {
	return func(dst *Options) { *dst = o }
}

// Result is the facade-visible outcome of running a script.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

func resolveOptions(opts []Option) Options {
	var o Options
	for _, f := range opts {
		f(&o)
	}
	return o
}

func buildFS(o Options) vfs.FS {
	files := make(map[string]vfs.File, len(o.Files))
	for path, text := range o.Files {
		files[path] = vfs.File{Text: text}
	}
	return vfs.NewMemFS(files)
}

func buildRunner(o Options) *interp.Runner {
	var ropts []interp.Option
	if len(o.Env) > 0 {
		ropts = append(ropts, interp.WithEnv(o.Env...))
	}
	cwd := o.Cwd
	if cwd == "" {
		cwd = "/"
	}
	ropts = append(ropts, interp.WithCwd(cwd))
	if o.Limits != (interp.Limits{}) {
		ropts = append(ropts, interp.WithLimits(o.Limits))
	}
	if o.Logger != nil {
		ropts = append(ropts, interp.WithLogger(o.Logger))
	}
	if len(o.Commands) > 0 {
		reg := interp.NewRegistry()
		for name, fn := range o.Commands {
			reg.Register(name, fn)
		}
		ropts = append(ropts, interp.WithRegistry(reg))
	}
	return interp.New(buildFS(o), ropts...)
}

// Exec parses and runs script once against a fresh, freshly-seeded
// Sandbox and discards the interpreter state afterward. Use NewSandbox
// instead when a script needs to observe state left behind by a prior
// one (exported variables, functions, cwd, ...).
func Exec(ctx context.Context, script string, opts ...Option) (Result, error) {
	sb := NewSandbox(opts...)
	return sb.Exec(ctx, script)
}

// Sandbox is a stateful shell instance: each Exec call runs against the
// same interpreter state and filesystem as the calls before it, per
// spec.md §6's "stateful sandbox variant".
type Sandbox struct {
	runner *interp.Runner
}

// NewSandbox builds a Sandbox from the given options.
func NewSandbox(opts ...Option) *Sandbox {
	o := resolveOptions(opts)
	return &Sandbox{runner: buildRunner(o)}
}

// Exec parses and runs script against this Sandbox's persistent
// interpreter state. A parse error is returned as a Go error (a
// host-level failure, not a script exit code); any other script
// failure surfaces only as Result.ExitCode, never as a Go error, per
// spec.md §7.
func (s *Sandbox) Exec(ctx context.Context, script string) (Result, error) {
	prog, err := syntax.Parse([]byte(script), "")
	if err != nil {
		return Result{}, fmt.Errorf("shell: parse: %w", err)
	}
	res, err := s.runner.Run(ctx, prog)
	if err != nil {
		return Result{}, fmt.Errorf("shell: run: %w", err)
	}
	return Result{Stdout: res.Stdout, Stderr: res.Stderr, ExitCode: res.ExitCode}, nil
}

// Runner exposes the underlying interp.Runner for advanced embedding
// use (inspecting variables, registering commands after construction).
func (s *Sandbox) Runner() *interp.Runner { return s.runner }
