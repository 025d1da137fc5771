package interp

import (
	"sort"

	"github.com/sandboxshell/vsh/expand"
)

// shellEnv implements expand.WriteEnviron with a stack of scopes, so
// "local" inside a function shadows an outer variable of the same
// name without disturbing it, per spec.md §3's Interpreter State.
type shellEnv struct {
	scopes []map[string]expand.Variable
}

func newShellEnv() *shellEnv {
	return &shellEnv{scopes: []map[string]expand.Variable{{}}}
}

func (e *shellEnv) pushScope() {
	e.scopes = append(e.scopes, map[string]expand.Variable{})
}

func (e *shellEnv) popScope() {
	if len(e.scopes) > 1 {
		e.scopes = e.scopes[:len(e.scopes)-1]
	}
}

func (e *shellEnv) top() map[string]expand.Variable {
	return e.scopes[len(e.scopes)-1]
}

func (e *shellEnv) Get(name string) expand.Variable {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if vr, ok := e.scopes[i][name]; ok {
			return vr
		}
	}
	return expand.Variable{}
}

func (e *shellEnv) Each(f func(string, expand.Variable) bool) {
	seen := map[string]bool{}
	var names []string
	for i := len(e.scopes) - 1; i >= 0; i-- {
		for n := range e.scopes[i] {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	for _, n := range names {
		if !f(n, e.Get(n)) {
			return
		}
	}
}

// Set writes to the innermost scope that already declares name (so
// assignment inside a function updates an outer variable as bash
// does), or the global scope if name is new, or the local scope if
// SetLocal declared it there first.
func (e *shellEnv) Set(name string, vr expand.Variable) error {
	cur := e.Get(name)
	if cur.Set && cur.ReadOnly {
		return &ReadOnlyError{Name: name}
	}
	if cur.NameRef && vr.Kind != expand.Unset {
		// writes through a nameref land on the referenced variable
		target := cur.Str
		if target != "" && target != name {
			return e.Set(target, vr)
		}
	}
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if _, ok := e.scopes[i][name]; ok {
			vr.Local = e.scopes[i][name].Local
			e.scopes[i][name] = mergeAttrs(e.scopes[i][name], vr)
			return nil
		}
	}
	e.scopes[0][name] = vr
	return nil
}

// SetLocal declares name in the current (innermost) scope, shadowing
// any outer variable, per the "local" builtin.
func (e *shellEnv) SetLocal(name string, vr expand.Variable) {
	vr.Local = true
	e.top()[name] = vr
}

// cloneShallow copies every scope's map (so the child's writes never
// alias the parent's maps) and also copies each indexed array's List
// and each associative array's Map, so a subshell's array writes never
// reach the parent's storage — the copy-on-write semantics spec.md
// §3/§5 requires.
func (e *shellEnv) cloneShallow() *shellEnv {
	out := &shellEnv{scopes: make([]map[string]expand.Variable, len(e.scopes))}
	for i, scope := range e.scopes {
		m := make(map[string]expand.Variable, len(scope))
		for k, v := range scope {
			if v.Kind == expand.Indexed {
				v.List = append([]string(nil), v.List...)
			}
			if v.Kind == expand.Assoc {
				nm := make(map[string]string, len(v.Map))
				for mk, mv := range v.Map {
					nm[mk] = mv
				}
				v.Map = nm
			}
			m[k] = v
		}
		out.scopes[i] = m
	}
	return out
}

// Unset removes name from whichever scope currently holds it.
func (e *shellEnv) Unset(name string) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if _, ok := e.scopes[i][name]; ok {
			delete(e.scopes[i], name)
			return
		}
	}
}

func mergeAttrs(old, next expand.Variable) expand.Variable {
	next.Exported = next.Exported || old.Exported
	next.ReadOnly = next.ReadOnly || old.ReadOnly
	return next
}

// ReadOnlyError is returned by Set when a readonly variable is
// reassigned.
type ReadOnlyError struct{ Name string }

func (e *ReadOnlyError) Error() string { return e.Name + ": readonly variable" }

// ExportedPairs returns "NAME=value" for every exported scalar
// variable, sorted by name, for the "export" builtin's no-argument
// listing.
func (e *shellEnv) ExportedPairs() []string {
	var out []string
	e.Each(func(name string, vr expand.Variable) bool {
		if vr.Exported && vr.Kind == expand.String {
			out = append(out, name+"="+vr.Str)
		}
		return true
	})
	return out
}

// variableString builds a scalar string Variable, optionally exported
// (used to seed the initial process environment).
func variableString(val string, exported bool) expand.Variable {
	return expand.Variable{Set: true, Kind: expand.String, Str: val, Exported: exported}
}

func isValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}
