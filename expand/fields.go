package expand

import (
	"context"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/sandboxshell/vsh/pattern"
	"github.com/sandboxshell/vsh/syntax"
)

// frag is one expanded fragment of a word: either a plain string
// (subject to splitting/globbing when unquoted) or a pre-split list of
// fields (from an unquoted "$@"/"${arr[@]}"), per spec.md §4.2.
type frag struct {
	str        string
	quoted     bool
	isList     bool
	list       []string
	listQuoted bool
	glob       bool // true if str came from a GlobPart (pathname-expansion eligible)
}

// Fields runs the full 6-stage expansion pipeline over a word list:
// brace expansion, tilde expansion, parameter/command/arithmetic
// expansion, field splitting, pathname expansion, quote removal.
func Fields(ctx context.Context, cfg *Config, words []*syntax.Word) ([]string, error) {
	var out []string
	for _, w := range words {
		for _, bw := range Braces(w) {
			fs, err := expandOneWord(ctx, cfg, bw)
			if err != nil {
				return nil, err
			}
			out = append(out, fs...)
		}
	}
	return out, nil
}

// Literal expands a single word without field splitting or pathname
// expansion — used for assignment right-hand sides, case patterns
// (which glob-match rather than glob-expand), and redirection targets.
func Literal(ctx context.Context, cfg *Config, w *syntax.Word) (string, error) {
	frs, err := expandParts(ctx, cfg, w.Parts, false)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, f := range frs {
		if f.isList {
			b.WriteString(strings.Join(f.list, " "))
			continue
		}
		b.WriteString(f.str)
	}
	return b.String(), nil
}

func expandOneWord(ctx context.Context, cfg *Config, w *syntax.Word) ([]string, error) {
	frs, err := expandParts(ctx, cfg, w.Parts, false)
	if err != nil {
		return nil, err
	}
	return splitAndGlob(cfg, frs)
}

func expandParts(ctx context.Context, cfg *Config, parts []syntax.WordPart, quoted bool) ([]frag, error) {
	var out []frag
	for i, p := range parts {
		switch x := p.(type) {
		case *syntax.Tilde:
			if i == 0 {
				out = append(out, frag{str: expandTilde(cfg, x.User), quoted: quoted})
			} else {
				out = append(out, frag{str: "~" + x.User, quoted: quoted})
			}
		case *syntax.Lit:
			out = append(out, frag{str: x.Value, quoted: quoted})
		case *syntax.Escaped:
			out = append(out, frag{str: string(x.Ch), quoted: true})
		case *syntax.GlobPart:
			out = append(out, frag{str: x.Pattern, quoted: quoted, glob: !quoted})
		case *syntax.SglQuoted:
			out = append(out, frag{str: x.Value, quoted: true})
		case *syntax.DblQuoted:
			inner, err := expandParts(ctx, cfg, x.Parts, true)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)
		case *syntax.ParamExp:
			f, err := expandParam(ctx, cfg, x, quoted)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		case *syntax.ArithExpPart:
			v, err := EvalArith(cfg, x.X)
			if err != nil {
				return nil, err
			}
			out = append(out, frag{str: strconv.FormatInt(v, 10), quoted: quoted})
		case *syntax.CmdSubst:
			if cfg.CmdSubst == nil {
				out = append(out, frag{str: "", quoted: quoted})
				continue
			}
			s, err := cfg.CmdSubst(ctx, x.Body)
			if err != nil {
				return nil, err
			}
			s = strings.TrimRight(s, "\n")
			out = append(out, frag{str: s, quoted: quoted})
		case *syntax.ProcSubst:
			if cfg.ProcSubst == nil {
				out = append(out, frag{str: "", quoted: quoted})
				continue
			}
			p, err := cfg.ProcSubst(ctx, x.In, x.Body)
			if err != nil {
				return nil, err
			}
			out = append(out, frag{str: p, quoted: quoted})
		case *syntax.BraceExp:
			// Already multiplied away by Braces; if one survives here
			// (nested inside quotes, which bash does not brace-expand)
			// treat it as literal text.
			out = append(out, frag{str: "{...}", quoted: true})
		default:
			out = append(out, frag{str: "", quoted: quoted})
		}
	}
	return out, nil
}

func expandTilde(cfg *Config, user string) string {
	if cfg.HomeDir == nil {
		return "~" + user
	}
	if dir, ok := cfg.HomeDir(user); ok {
		return dir
	}
	return "~" + user
}

// splitAndGlob performs IFS field splitting over the unquoted
// fragments of a word, then pathname expansion on any resulting field
// that carries a glob-eligible fragment, per spec.md §4.2 stages 4-5.
func splitAndGlob(cfg *Config, frs []frag) ([]string, error) {
	// Handle the common case of a lone list fragment (unquoted
	// "$@"/"${arr[@]}"): each list element is its own field.
	if len(frs) == 1 && frs[0].isList {
		fields := append([]string(nil), frs[0].list...)
		if frs[0].listQuoted {
			return fields, nil
		}
		var out []string
		for _, f := range fields {
			out = append(out, splitIFS(cfg, f)...)
		}
		return globFields(cfg, out, false)
	}

	ifs := cfg.IFS
	hasIFS := true
	if ifs == "" {
		hasIFS = false
	}
	var b strings.Builder
	anyUnquoted := false
	anyGlob := false
	for _, f := range frs {
		if f.isList {
			b.WriteString(strings.Join(f.list, " "))
			continue
		}
		b.WriteString(f.str)
		if !f.quoted {
			anyUnquoted = true
		}
		if f.glob {
			anyGlob = true
		}
	}
	whole := b.String()
	if !anyUnquoted {
		return []string{whole}, nil
	}
	var fields []string
	if hasIFS {
		fields = splitIFS(cfg, whole)
	} else {
		fields = []string{whole}
	}
	return globFields(cfg, fields, anyGlob)
}

func splitIFS(cfg *Config, s string) []string {
	ifs := cfg.IFS
	if ifs == "" {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	isWS := func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' }
	var fields []string
	i := 0
	runes := []rune(s)
	// skip leading IFS-whitespace
	for i < len(runes) && strings.ContainsRune(ifs, runes[i]) && isWS(runes[i]) {
		i++
	}
	start := i
	sawField := i < len(runes)
	for i < len(runes) {
		r := runes[i]
		if strings.ContainsRune(ifs, r) {
			fields = append(fields, string(runes[start:i]))
			i++
			if isWS(r) {
				for i < len(runes) && strings.ContainsRune(ifs, runes[i]) && isWS(runes[i]) {
					i++
				}
			}
			start = i
			sawField = i < len(runes)
			continue
		}
		i++
	}
	if sawField {
		fields = append(fields, string(runes[start:]))
	}
	return fields
}

func globFields(cfg *Config, fields []string, forceGlobCheck bool) ([]string, error) {
	if cfg.NoGlob {
		return fields, nil
	}
	var out []string
	for _, f := range fields {
		if !pattern.HasMeta(f) {
			out = append(out, f)
			continue
		}
		matches, err := globField(cfg, f)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			if cfg.FailGlob {
				return nil, &NoMatchError{Pattern: f}
			}
			if !cfg.NullGlob {
				out = append(out, f)
			}
			continue
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out, nil
}

// NoMatchError is returned when failglob is set and a glob has no
// matches.
type NoMatchError struct{ Pattern string }

func (e *NoMatchError) Error() string { return "no match: " + e.Pattern }

func globField(cfg *Config, pat string) ([]string, error) {
	if cfg.ReadDir == nil {
		return nil, nil
	}
	dir, base := path.Split(pat)
	if dir == "" {
		dir = "."
	} else {
		dir = strings.TrimSuffix(dir, "/")
		if dir == "" {
			dir = "/"
		}
	}
	mode := pattern.EntireString | pattern.Filenames
	if cfg.NoCaseGlob {
		mode |= pattern.NoGlobCase
	}
	if cfg.ExtGlob {
		mode |= pattern.ExtendedOperators
	}
	matcher, err := pattern.ExtendedMatcher(base, mode)
	if err != nil {
		return nil, nil
	}
	names, err := cfg.ReadDir(dir)
	if err != nil {
		return nil, nil
	}
	var out []string
	for _, n := range names {
		if strings.HasPrefix(n, ".") && !strings.HasPrefix(base, ".") {
			continue
		}
		if matcher(n) {
			if dir == "." {
				out = append(out, n)
			} else if dir == "/" {
				out = append(out, "/"+n)
			} else {
				out = append(out, dir+"/"+n)
			}
		}
	}
	return out, nil
}
