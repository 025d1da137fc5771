package expand

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sandboxshell/vsh/pattern"
	"github.com/sandboxshell/vsh/syntax"
)

// expandParam resolves one "$name" / "${...}" parameter expansion into
// a fragment, per spec.md §4.2's parameter-expansion operator table.
func expandParam(ctx context.Context, cfg *Config, pe *syntax.ParamExp, quoted bool) (frag, error) {
	name := pe.Name

	if pe.Op == syntax.ParamOpNamesStar || pe.Op == syntax.ParamOpNamesAt {
		return expandNamesMatching(cfg, name, pe.Op == syntax.ParamOpNamesAt, quoted), nil
	}
	if pe.Op == syntax.ParamOpKeysAt || pe.Op == syntax.ParamOpKeysStar {
		return expandKeys(cfg, name, pe.Op == syntax.ParamOpKeysAt, quoted), nil
	}
	if pe.Op == syntax.ParamOpIndirect {
		target := lookupScalar(cfg, name)
		return frag{str: lookupScalar(cfg, target), quoted: quoted}, nil
	}

	if pe.Length {
		return expandLength(cfg, pe, quoted), nil
	}

	if name == "@" || name == "*" || (pe.IndexAll != 0) {
		return expandArrayOrPositionalAll(ctx, cfg, pe, name, quoted)
	}

	val, isSet, err := lookupIndexed(ctx, cfg, pe, name)
	if err != nil {
		return frag{}, err
	}

	switch pe.Op {
	case syntax.ParamOpNone:
		if !isSet && cfg.NoUnset {
			return frag{}, unsetErr(cfg, name)
		}
		return frag{str: val, quoted: quoted}, nil
	case syntax.ParamOpDefaultUnset:
		if !isSet {
			return expandOperand(ctx, cfg, pe.Arg, quoted)
		}
		return frag{str: val, quoted: quoted}, nil
	case syntax.ParamOpDefault:
		if !isSet || val == "" {
			return expandOperand(ctx, cfg, pe.Arg, quoted)
		}
		return frag{str: val, quoted: quoted}, nil
	case syntax.ParamOpAssignUnset:
		if !isSet {
			f, err := expandOperand(ctx, cfg, pe.Arg, quoted)
			if err != nil {
				return frag{}, err
			}
			_ = cfg.Env.Set(name, Variable{Set: true, Kind: String, Str: f.str})
			return f, nil
		}
		return frag{str: val, quoted: quoted}, nil
	case syntax.ParamOpAssign:
		if !isSet || val == "" {
			f, err := expandOperand(ctx, cfg, pe.Arg, quoted)
			if err != nil {
				return frag{}, err
			}
			_ = cfg.Env.Set(name, Variable{Set: true, Kind: String, Str: f.str})
			return f, nil
		}
		return frag{str: val, quoted: quoted}, nil
	case syntax.ParamOpErrorUnset:
		if !isSet {
			return frag{}, errorOperand(ctx, cfg, name, pe.Arg, "parameter null or not set")
		}
		return frag{str: val, quoted: quoted}, nil
	case syntax.ParamOpError:
		if !isSet || val == "" {
			return frag{}, errorOperand(ctx, cfg, name, pe.Arg, "parameter null or not set")
		}
		return frag{str: val, quoted: quoted}, nil
	case syntax.ParamOpAltUnset:
		if !isSet {
			return frag{str: "", quoted: quoted}, nil
		}
		return expandOperand(ctx, cfg, pe.Arg, quoted)
	case syntax.ParamOpAlt:
		if !isSet || val == "" {
			return frag{str: "", quoted: quoted}, nil
		}
		return expandOperand(ctx, cfg, pe.Arg, quoted)
	case syntax.ParamOpSubstr:
		return expandSubstr(ctx, cfg, pe, val, quoted)
	case syntax.ParamOpRemoveShortestPrefix, syntax.ParamOpRemoveLongestPrefix,
		syntax.ParamOpRemoveShortestSuffix, syntax.ParamOpRemoveLongestSuffix:
		return expandTrim(ctx, cfg, pe, val, quoted)
	case syntax.ParamOpReplaceOnce, syntax.ParamOpReplaceAll,
		syntax.ParamOpReplaceAnchorStart, syntax.ParamOpReplaceAnchorEnd:
		return expandReplace(ctx, cfg, pe, val, quoted)
	case syntax.ParamOpCaseFirstUpper, syntax.ParamOpCaseAllUpper,
		syntax.ParamOpCaseFirstLower, syntax.ParamOpCaseAllLower:
		return expandCase(ctx, cfg, pe, val, quoted)
	case syntax.ParamOpTransform:
		return expandTransform(pe, val, quoted), nil
	}
	return frag{str: val, quoted: quoted}, nil
}

func lookupScalar(cfg *Config, name string) string {
	if v, ok := specialParam(cfg, name); ok {
		return v
	}
	vr := cfg.Env.Get(name)
	switch vr.Kind {
	case String:
		return vr.Str
	case Indexed:
		if len(vr.List) > 0 {
			return vr.List[0]
		}
	case Assoc:
		return ""
	}
	return ""
}

func specialParam(cfg *Config, name string) (string, bool) {
	switch name {
	case "?":
		return strconv.Itoa(cfg.ExitStatus), true
	case "$":
		return strconv.Itoa(cfg.ShellPID), true
	case "!":
		if cfg.BgPID == 0 {
			return "", true
		}
		return strconv.Itoa(cfg.BgPID), true
	case "-":
		return cfg.OptionFlags, true
	case "0":
		return cfg.Arg0, true
	case "#":
		return strconv.Itoa(len(cfg.Params)), true
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 1 {
		if n <= len(cfg.Params) {
			return cfg.Params[n-1], true
		}
		return "", true
	}
	return "", false
}

func lookupIndexed(ctx context.Context, cfg *Config, pe *syntax.ParamExp, name string) (string, bool, error) {
	if v, ok := specialParam(cfg, name); ok {
		return v, true, nil
	}
	vr := cfg.Env.Get(name)
	if pe.Index != nil {
		idx, err := Literal(ctx, cfg, pe.Index)
		if err != nil {
			return "", false, err
		}
		switch vr.Kind {
		case Indexed:
			n, err := strconv.Atoi(idx)
			if err != nil || n < 0 || n >= len(vr.List) {
				return "", false, nil
			}
			return vr.List[n], vr.Set, nil
		case Assoc:
			s, ok := vr.Map[idx]
			return s, ok, nil
		default:
			return "", false, nil
		}
	}
	switch vr.Kind {
	case String:
		return vr.Str, vr.Set, nil
	case Indexed:
		if len(vr.List) > 0 {
			return vr.List[0], vr.Set, nil
		}
		return "", vr.Set, nil
	case Assoc:
		return "", vr.Set, nil
	}
	return "", false, nil
}

func expandArrayOrPositionalAll(ctx context.Context, cfg *Config, pe *syntax.ParamExp, name string, quoted bool) (frag, error) {
	var list []string
	switch name {
	case "@", "*":
		list = append([]string(nil), cfg.Params...)
	default:
		vr := cfg.Env.Get(name)
		switch vr.Kind {
		case Indexed:
			list = append([]string(nil), vr.List...)
		case Assoc:
			keys := make([]string, 0, len(vr.Map))
			for k := range vr.Map {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				list = append(list, vr.Map[k])
			}
		case String:
			list = []string{vr.Str}
		}
	}
	if quoted && pe.IndexAll == '*' {
		ifs := " "
		if cfg.IFS != "" {
			ifs = cfg.IFS[:1]
		}
		return frag{str: strings.Join(list, ifs), quoted: true}, nil
	}
	if !quoted && pe.IndexAll == '*' {
		ifs := " "
		if cfg.IFS != "" {
			ifs = cfg.IFS[:1]
		}
		return frag{str: strings.Join(list, ifs), quoted: false}, nil
	}
	// "@"-style: one field per element, quote-preserved when in quotes.
	return frag{isList: true, list: list, listQuoted: quoted}, nil
}

func expandLength(cfg *Config, pe *syntax.ParamExp, quoted bool) frag {
	name := pe.Name
	if name == "@" || name == "*" {
		return frag{str: strconv.Itoa(len(cfg.Params)), quoted: quoted}
	}
	vr := cfg.Env.Get(name)
	if pe.IndexAll != 0 {
		switch vr.Kind {
		case Indexed:
			return frag{str: strconv.Itoa(len(vr.List)), quoted: quoted}
		case Assoc:
			return frag{str: strconv.Itoa(len(vr.Map)), quoted: quoted}
		}
		return frag{str: "0", quoted: quoted}
	}
	if v, ok := specialParam(cfg, name); ok {
		return frag{str: strconv.Itoa(len(v)), quoted: quoted}
	}
	switch vr.Kind {
	case String:
		return frag{str: strconv.Itoa(len(vr.Str)), quoted: quoted}
	case Indexed:
		if len(vr.List) > 0 {
			return frag{str: strconv.Itoa(len(vr.List[0])), quoted: quoted}
		}
	}
	return frag{str: "0", quoted: quoted}
}

func expandNamesMatching(cfg *Config, prefix string, asAt bool, quoted bool) frag {
	var names []string
	cfg.Env.Each(func(n string, vr Variable) bool {
		if strings.HasPrefix(n, prefix) {
			names = append(names, n)
		}
		return true
	})
	sort.Strings(names)
	if asAt {
		return frag{isList: true, list: names, listQuoted: quoted}
	}
	return frag{str: strings.Join(names, " "), quoted: quoted}
}

func expandKeys(cfg *Config, name string, asAt bool, quoted bool) frag {
	vr := cfg.Env.Get(name)
	var keys []string
	switch vr.Kind {
	case Indexed:
		for i := range vr.List {
			keys = append(keys, strconv.Itoa(i))
		}
	case Assoc:
		for k := range vr.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	if asAt {
		return frag{isList: true, list: keys, listQuoted: quoted}
	}
	return frag{str: strings.Join(keys, " "), quoted: quoted}
}

func expandOperand(ctx context.Context, cfg *Config, w *syntax.Word, quoted bool) (frag, error) {
	s, err := Literal(ctx, cfg, w)
	if err != nil {
		return frag{}, err
	}
	return frag{str: s, quoted: quoted}, nil
}

func errorOperand(ctx context.Context, cfg *Config, name string, w *syntax.Word, fallback string) error {
	if w == nil || len(w.Parts) == 0 {
		return fmt.Errorf("%s: %s", name, fallback)
	}
	s, err := Literal(ctx, cfg, w)
	if err != nil {
		return err
	}
	return fmt.Errorf("%s: %s", name, s)
}

func expandSubstr(ctx context.Context, cfg *Config, pe *syntax.ParamExp, val string, quoted bool) (frag, error) {
	offS, err := Literal(ctx, cfg, pe.Arg)
	if err != nil {
		return frag{}, err
	}
	off, err := strconv.Atoi(strings.TrimSpace(offS))
	if err != nil {
		return frag{}, fmt.Errorf("invalid substring offset %q", offS)
	}
	runes := []rune(val)
	if off < 0 {
		off += len(runes)
		if off < 0 {
			off = 0
		}
	}
	if off > len(runes) {
		off = len(runes)
	}
	if pe.Length2 == nil {
		return frag{str: string(runes[off:]), quoted: quoted}, nil
	}
	lenS, err := Literal(ctx, cfg, pe.Length2)
	if err != nil {
		return frag{}, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(lenS))
	if err != nil {
		return frag{}, fmt.Errorf("invalid substring length %q", lenS)
	}
	end := off + n
	if n < 0 {
		end = len(runes) + n
	}
	if end > len(runes) {
		end = len(runes)
	}
	if end < off {
		end = off
	}
	return frag{str: string(runes[off:end]), quoted: quoted}, nil
}

func expandTrim(ctx context.Context, cfg *Config, pe *syntax.ParamExp, val string, quoted bool) (frag, error) {
	pat, err := Literal(ctx, cfg, pe.Arg)
	if err != nil {
		return frag{}, err
	}
	longest := pe.Op == syntax.ParamOpRemoveLongestPrefix || pe.Op == syntax.ParamOpRemoveLongestSuffix
	suffix := pe.Op == syntax.ParamOpRemoveShortestSuffix || pe.Op == syntax.ParamOpRemoveLongestSuffix
	result := trimMatch(val, pat, suffix, longest)
	return frag{str: result, quoted: quoted}, nil
}

func trimMatch(val, pat string, suffix, longest bool) string {
	if pat == "" {
		return val
	}
	best := -1
	if !suffix {
		limit := len(val)
		for n := 0; n <= limit; n++ {
			cand := val[:n]
			if globMatches(cand, pat) {
				best = n
				if !longest {
					break
				}
			}
		}
		if best < 0 {
			return val
		}
		return val[best:]
	}
	for n := 0; n <= len(val); n++ {
		cand := val[len(val)-n:]
		if globMatches(cand, pat) {
			best = n
			if !longest {
				break
			}
		}
	}
	if best < 0 {
		return val
	}
	return val[:len(val)-best]
}

func globMatches(s, pat string) bool {
	m, err := pattern.ExtendedMatcher(pat, pattern.EntireString|pattern.ExtendedOperators)
	if err != nil {
		return s == pat
	}
	return m(s)
}

func expandReplace(ctx context.Context, cfg *Config, pe *syntax.ParamExp, val string, quoted bool) (frag, error) {
	pat, err := Literal(ctx, cfg, pe.Arg)
	if err != nil {
		return frag{}, err
	}
	repl := ""
	if pe.Arg2 != nil {
		repl, err = Literal(ctx, cfg, pe.Arg2)
		if err != nil {
			return frag{}, err
		}
	}
	expr, err := pattern.Regexp(pat, pattern.ExtendedOperators)
	if err != nil {
		if _, ok := err.(*pattern.NegExtGlobError); !ok {
			return frag{str: strings.ReplaceAll(val, pat, repl), quoted: quoted}, nil
		}
	}
	switch pe.Op {
	case syntax.ParamOpReplaceAnchorStart:
		rx, rerr := regexp.Compile("^(?:" + expr + ")")
		if rerr != nil {
			return frag{str: val, quoted: quoted}, nil
		}
		return frag{str: rx.ReplaceAllString(val, repl), quoted: quoted}, nil
	case syntax.ParamOpReplaceAnchorEnd:
		rx, rerr := regexp.Compile("(?:" + expr + ")$")
		if rerr != nil {
			return frag{str: val, quoted: quoted}, nil
		}
		return frag{str: rx.ReplaceAllString(val, repl), quoted: quoted}, nil
	case syntax.ParamOpReplaceAll:
		rx, rerr := regexp.Compile(expr)
		if rerr != nil {
			return frag{str: val, quoted: quoted}, nil
		}
		return frag{str: rx.ReplaceAllString(val, repl), quoted: quoted}, nil
	default: // ParamOpReplaceOnce
		rx, rerr := regexp.Compile(expr)
		if rerr != nil {
			return frag{str: val, quoted: quoted}, nil
		}
		loc := rx.FindStringIndex(val)
		if loc == nil {
			return frag{str: val, quoted: quoted}, nil
		}
		return frag{str: val[:loc[0]] + repl + val[loc[1]:], quoted: quoted}, nil
	}
}

func expandCase(ctx context.Context, cfg *Config, pe *syntax.ParamExp, val string, quoted bool) (frag, error) {
	var pat string
	var err error
	if pe.Arg != nil {
		pat, err = Literal(ctx, cfg, pe.Arg)
		if err != nil {
			return frag{}, err
		}
	}
	matchesAt := func(i int, r rune) bool {
		if pat == "" {
			return true
		}
		return globMatches(string(r), pat)
	}
	runes := []rune(val)
	all := pe.Op == syntax.ParamOpCaseAllUpper || pe.Op == syntax.ParamOpCaseAllLower
	upper := pe.Op == syntax.ParamOpCaseFirstUpper || pe.Op == syntax.ParamOpCaseAllUpper
	for i, r := range runes {
		if !all && i > 0 {
			break
		}
		if !matchesAt(i, r) {
			continue
		}
		if upper {
			runes[i] = toUpperRune(r)
		} else {
			runes[i] = toLowerRune(r)
		}
		if !all {
			break
		}
	}
	return frag{str: string(runes), quoted: quoted}, nil
}

func toUpperRune(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

func toLowerRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func expandTransform(pe *syntax.ParamExp, val string, quoted bool) frag {
	switch pe.Transform {
	case 'Q':
		return frag{str: strconv.Quote(val), quoted: quoted}
	case 'U':
		return frag{str: strings.ToUpper(val), quoted: quoted}
	case 'u':
		if val == "" {
			return frag{str: val, quoted: quoted}
		}
		r := []rune(val)
		r[0] = toUpperRune(r[0])
		return frag{str: string(r), quoted: quoted}
	case 'L':
		return frag{str: strings.ToLower(val), quoted: quoted}
	default:
		return frag{str: val, quoted: quoted}
	}
}
