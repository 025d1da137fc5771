package interp

import (
	"math/rand"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sandboxshell/vsh/syntax"
)

// Options mirrors the "set -o" toggles of spec.md §3.
type Options struct {
	Errexit   bool
	Pipefail  bool
	Nounset   bool
	Xtrace    bool
	Verbose   bool
	Posix     bool
	Allexport bool
	Noclobber bool
	Noglob    bool
}

// ShoptOpts mirrors the "shopt" toggles of spec.md §3.
type ShoptOpts struct {
	Extglob       bool
	Dotglob       bool
	Nullglob      bool
	Failglob      bool
	Globstar      bool
	Nocaseglob    bool
	Nocasematch   bool
	ExpandAliases bool
	Lastpipe      bool
}

// Limits bounds runaway scripts, per spec.md §5.
type Limits struct {
	MaxCommands       int
	MaxLoopIterations int
	MaxExpansionSize  int
	MaxCallDepth      int
	MaxHeredocSize    int
}

// DefaultLimits mirrors the conservative defaults a sandboxed embedding
// wants out of the box.
func DefaultLimits() Limits {
	return Limits{
		MaxCommands:       200_000,
		MaxLoopIterations: 1_000_000,
		MaxExpansionSize:  8 << 20,
		MaxCallDepth:      1_000,
		MaxHeredocSize:    4 << 20,
	}
}

// LimitError describes an exceeded Limits bound. The runner does not
// return it: when a limit is exceeded it writes a message naming the
// limit to stderr and exits the shell with status 1, the same status as
// an ordinary command failure.
type LimitError struct {
	What string
}

func (e *LimitError) Error() string { return "execution limit exceeded: " + e.What }

// hashCacheSize bounds the "hash" builtin's command-location cache,
// per spec.md §5's execution-limit philosophy: an unbounded map would
// let a script with many distinct command names grow it forever.
const hashCacheSize = 256

func newHashCache() *lru.Cache[string, string] {
	c, _ := lru.New[string, string](hashCacheSize)
	return c
}

func cloneHashCache(c *lru.Cache[string, string]) *lru.Cache[string, string] {
	out := newHashCache()
	for _, k := range c.Keys() {
		if v, ok := c.Get(k); ok {
			out.Add(k, v)
		}
	}
	return out
}

// State is one interpreter frame: one instance per shell, one per
// subshell, matching spec.md §3's Interpreter State exactly (array
// storage itself lives on each Variable via expand.Variable, not
// duplicated here).
type State struct {
	Env *shellEnv

	Functions map[string]*syntax.FuncDecl
	Options   Options
	Shopt     ShoptOpts

	Positional []string
	Arg0       string

	LastExit  int
	LastBgPID int

	secondsStart time.Time
	lineno       int

	CallDepth            int
	LoopDepth            int
	SourceDepth          int
	InCondition          bool
	ParentHasLoopContext bool

	HashCache *lru.Cache[string, string]
	Aliases   map[string]string

	Limits         Limits
	CommandCount   int
	IterationCount int

	// Non-local control transfer, field-based per the teacher's
	// breakEnclosing/contnEnclosing counters rather than panics:
	// signal is sigNone except while a break/continue/return/exit is
	// unwinding, breakN/contN count the remaining N for break/continue,
	// and exitCode carries the value for sigReturn/sigExit.
	signal   signalKind
	breakN   int
	contN    int
	exitCode int

	// suppressErrexit is set by runBinary when an "&&"/"||" left-hand
	// side short-circuits, so the enclosing runStmts' checkErrexit call
	// exempts it per spec.md §8 property 6; consumed (cleared) on read.
	suppressErrexit bool

	bashPID  int64
	subshell *int64 // shared subshell-numbering counter across the exec tree
	procSeq  *int64 // shared process-substitution path counter across the exec tree

	rng *rand.Rand

	FuncName []string // FUNCNAME stack, innermost last
}

// NewState builds a root interpreter frame seeded from env pairs.
func NewState(envPairs []string) *State {
	counter := int64(0)
	procCounter := int64(0)
	s := &State{
		Env:          newShellEnv(),
		Functions:    map[string]*syntax.FuncDecl{},
		Options:      Options{},
		Shopt:        ShoptOpts{},
		HashCache:    newHashCache(),
		Aliases:      map[string]string{},
		Limits:       DefaultLimits(),
		secondsStart: time.Now(),
		bashPID:      1,
		subshell:     &counter,
		procSeq:      &procCounter,
		rng:          rand.New(rand.NewSource(1)),
	}
	for _, p := range envPairs {
		for i := 0; i < len(p); i++ {
			if p[i] == '=' {
				name, val := p[:i], p[i+1:]
				s.Env.SetLocal(name, variableString(val, true))
				break
			}
		}
	}
	return s
}

// clone produces the copy-on-write subshell snapshot spec.md §3/§5
// describes: env/functions/options/shopt/positional are shallow-cloned,
// so mutations inside the subshell never propagate to the parent.
func (s *State) clone() *State {
	*s.subshell++
	child := &State{
		Env:                  s.Env.cloneShallow(),
		Functions:            cloneFuncMap(s.Functions),
		Options:              s.Options,
		Shopt:                s.Shopt,
		Positional:           append([]string(nil), s.Positional...),
		Arg0:                 s.Arg0,
		LastExit:             s.LastExit,
		HashCache:            cloneHashCache(s.HashCache),
		Aliases:              s.Aliases,
		Limits:               s.Limits,
		secondsStart:         time.Now(),
		bashPID:              *s.subshell + 1,
		subshell:             s.subshell,
		procSeq:              s.procSeq,
		rng:                  s.rng,
		ParentHasLoopContext: s.LoopDepth > 0,
		FuncName:             append([]string(nil), s.FuncName...),
	}
	return child
}

func cloneFuncMap(m map[string]*syntax.FuncDecl) map[string]*syntax.FuncDecl {
	out := make(map[string]*syntax.FuncDecl, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *State) seconds() int64 {
	return int64(time.Since(s.secondsStart).Seconds())
}

func (s *State) random() int {
	return s.rng.Intn(32768)
}

func (s *State) bashPid() int64 { return s.bashPID }
