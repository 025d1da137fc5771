// Package expand implements the shell's word-expansion pipeline: brace
// expansion, tilde expansion, parameter/command/arithmetic expansion,
// field splitting, pathname expansion, and quote removal, per spec.md
// §4.2, plus the arithmetic and "[[ ]]" test evaluators that share its
// variable-lookup machinery.
package expand

import "sort"

// ValueKind tags what shape a Variable's value takes.
type ValueKind uint8

const (
	Unset ValueKind = iota
	String
	Indexed
	Assoc
)

// Variable is one shell variable's full state: scalar, indexed array,
// or associative array, plus the attribute bits set/typeset/declare
// can attach.
type Variable struct {
	Set      bool
	Local    bool
	Exported bool
	ReadOnly bool
	NameRef  bool
	Integer  bool
	Lower    bool
	Upper    bool

	Kind ValueKind
	Str  string
	List []string          // Indexed: List[i] is index i; empty slots are ""
	Map  map[string]string // Assoc
}

// Environ is a read-only view over shell variables.
type Environ interface {
	Get(name string) Variable
	Each(func(name string, vr Variable) bool)
}

// WriteEnviron additionally allows assignment; implementations apply
// readonly/nameref/integer semantics before storing.
type WriteEnviron interface {
	Environ
	Set(name string, vr Variable) error
}

// FuncEnviron adapts a plain lookup function to Environ, for read-only
// scopes such as a command substitution's inherited parent view.
type FuncEnviron func(name string) Variable

func (f FuncEnviron) Get(name string) Variable { return f(name) }
func (f FuncEnviron) Each(func(string, Variable) bool) {}

// ListEnviron builds a simple Environ from a set of NAME=value pairs,
// the shape os.Environ() or a Sandbox's initial env configuration
// produces.
type ListEnviron struct {
	m map[string]Variable
}

func NewListEnviron(pairs ...string) *ListEnviron {
	le := &ListEnviron{m: map[string]Variable{}}
	for _, p := range pairs {
		for i := 0; i < len(p); i++ {
			if p[i] == '=' {
				le.m[p[:i]] = Variable{Set: true, Exported: true, Kind: String, Str: p[i+1:]}
				break
			}
		}
	}
	return le
}

func (l *ListEnviron) Get(name string) Variable { return l.m[name] }

func (l *ListEnviron) Each(f func(string, Variable) bool) {
	names := make([]string, 0, len(l.m))
	for n := range l.m {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if !f(n, l.m[n]) {
			return
		}
	}
}

func (l *ListEnviron) Set(name string, vr Variable) error {
	if !vr.Set {
		delete(l.m, name)
		return nil
	}
	l.m[name] = vr
	return nil
}
