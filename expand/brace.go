package expand

import (
	"strconv"

	"github.com/sandboxshell/vsh/syntax"
)

// Braces multiplies a word that contains one or more BraceExp parts
// into the cartesian product of its alternatives, per spec.md §4.2
// stage 1. A word with no BraceExp part is returned unchanged as the
// sole result.
func Braces(w *syntax.Word) []*syntax.Word {
	idx := -1
	for i, p := range w.Parts {
		if _, ok := p.(*syntax.BraceExp); ok {
			idx = i
			break
		}
	}
	if idx == -1 {
		return []*syntax.Word{w}
	}
	be := w.Parts[idx].(*syntax.BraceExp)
	var alts [][]syntax.WordPart
	if be.Sequence {
		alts = sequenceAlts(be)
	} else {
		alts = be.Elems
	}
	var out []*syntax.Word
	for _, alt := range alts {
		parts := make([]syntax.WordPart, 0, len(w.Parts)-1+len(alt))
		parts = append(parts, w.Parts[:idx]...)
		parts = append(parts, alt...)
		parts = append(parts, w.Parts[idx+1:]...)
		sub := &syntax.Word{Parts: parts}
		out = append(out, Braces(sub)...)
	}
	if len(out) == 0 {
		return []*syntax.Word{w}
	}
	return out
}

func sequenceAlts(be *syntax.BraceExp) [][]syntax.WordPart {
	step := 1
	if be.Step != "" {
		if n, err := strconv.Atoi(be.Step); err == nil && n != 0 {
			step = n
		}
	}
	if fn, ferr := strconv.Atoi(be.From); ferr == nil {
		tn, terr := strconv.Atoi(be.To)
		if terr == nil {
			if step < 0 {
				step = -step
			}
			width := 0
			if len(be.From) > 1 && (be.From[0] == '0') {
				width = len(be.From)
			}
			if len(be.To) > 1 && be.To[0] == '0' && len(be.To) > width {
				width = len(be.To)
			}
			var alts [][]syntax.WordPart
			if fn <= tn {
				for v := fn; v <= tn; v += step {
					alts = append(alts, []syntax.WordPart{&syntax.Lit{Value: padInt(v, width)}})
				}
			} else {
				for v := fn; v >= tn; v -= step {
					alts = append(alts, []syntax.WordPart{&syntax.Lit{Value: padInt(v, width)}})
				}
			}
			return alts
		}
	}
	if len(be.From) == 1 && len(be.To) == 1 {
		from, to := rune(be.From[0]), rune(be.To[0])
		st := step
		if st < 0 {
			st = -st
		}
		if st == 0 {
			st = 1
		}
		var alts [][]syntax.WordPart
		if from <= to {
			for v := from; v <= to; v += rune(st) {
				alts = append(alts, []syntax.WordPart{&syntax.Lit{Value: string(v)}})
			}
		} else {
			for v := from; v >= to; v -= rune(st) {
				alts = append(alts, []syntax.WordPart{&syntax.Lit{Value: string(v)}})
			}
		}
		return alts
	}
	return nil
}

func padInt(v, width int) string {
	s := strconv.Itoa(v)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	for len(s) < width {
		s = "0" + s
	}
	if neg {
		s = "-" + s
	}
	return s
}
