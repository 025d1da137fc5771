package interp

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sandboxshell/vsh/expand"
	"github.com/sandboxshell/vsh/syntax"
)

// pendingWrite buffers output destined for a path so a single flush at
// the end of the redirected command's execution can go through
// vfs.FS.WriteFile/AppendFile atomically, per spec.md §4.5's "write
// operations are atomic per-call" invariant.
type pendingWrite struct {
	buf    *bytes.Buffer
	path   string
	append bool
}

// applyRedirects builds the ioFrame a CmdNode's inner command sees,
// honoring spec.md §4.3's redirection rules (left-to-right, later
// overrides earlier for the same fd), and returns a cleanup function
// that flushes buffered writes back to the FS.
func (r *Runner) applyRedirects(ctx context.Context, redirs []*syntax.Redirect, frame ioFrame) (ioFrame, func(), error) {
	if len(redirs) == 0 {
		return frame, func() {}, nil
	}
	out := frame.clone()
	cfg := r.expandConfig(ctx)
	var pending []*pendingWrite

	cleanup := func() {
		for _, p := range pending {
			data := p.buf.Bytes()
			var err error
			if p.append {
				err = r.FS.AppendFile(p.path, data)
			} else {
				err = r.FS.WriteFile(p.path, data, 0o644)
			}
			if err != nil {
				r.Log.Warnf("redirect flush %s: %v", p.path, err)
			}
		}
	}

	for _, rd := range redirs {
		fd := defaultFd(rd.Op)
		if rd.Fd != nil {
			fd = *rd.Fd
		}
		if rd.VarFd != "" {
			fd = 10
			for out.writers[fd] != nil || out.readers[fd] != nil {
				fd++
			}
		}
		switch rd.Op {
		case syntax.RedirIn:
			path, err := expand.Literal(ctx, cfg, rd.Target)
			if err != nil {
				return frame, cleanup, err
			}
			abs := r.FS.ResolvePath(r.cwd, path)
			content, err := r.FS.ReadFile(abs)
			if err != nil {
				return frame, cleanup, fmt.Errorf("%s: No such file or directory", path)
			}
			out.readers[fd] = strings.NewReader(content)
			if fd == 0 {
				out.in = out.readers[0]
			}

		case syntax.RedirOut, syntax.RedirClobber, syntax.RedirAppend:
			path, err := expand.Literal(ctx, cfg, rd.Target)
			if err != nil {
				return frame, cleanup, err
			}
			abs := r.FS.ResolvePath(r.cwd, path)
			if rd.Op == syntax.RedirOut && r.State.Options.Noclobber && r.FS.Exists(abs) {
				return frame, cleanup, fmt.Errorf("%s: cannot overwrite existing file", path)
			}
			buf := &bytes.Buffer{}
			pending = append(pending, &pendingWrite{buf: buf, path: abs, append: rd.Op == syntax.RedirAppend})
			out.writers[fd] = buf

		case syntax.RedirHeredoc, syntax.RedirHeredocDash:
			body := ""
			if rd.HeredocBody != nil {
				if rd.HeredocQuoted {
					body, _ = rd.HeredocBody.Lit()
				} else {
					body, _ = expand.Literal(ctx, cfg, rd.HeredocBody)
				}
			}
			out.readers[fd] = strings.NewReader(body)
			if fd == 0 {
				out.in = out.readers[0]
			}

		case syntax.RedirHereString:
			s, err := expand.Literal(ctx, cfg, rd.Target)
			if err != nil {
				return frame, cleanup, err
			}
			out.readers[fd] = strings.NewReader(s + "\n")
			if fd == 0 {
				out.in = out.readers[0]
			}

		case syntax.RedirReadWrite:
			path, err := expand.Literal(ctx, cfg, rd.Target)
			if err != nil {
				return frame, cleanup, err
			}
			abs := r.FS.ResolvePath(r.cwd, path)
			content, _ := r.FS.ReadFile(abs)
			out.readers[fd] = strings.NewReader(content)
			buf := &bytes.Buffer{}
			pending = append(pending, &pendingWrite{buf: buf, path: abs, append: false})
			out.writers[fd] = buf

		case syntax.RedirDupOut:
			target, err := expand.Literal(ctx, cfg, rd.Target)
			if err != nil {
				return frame, cleanup, err
			}
			if target == "-" {
				delete(out.writers, fd)
				continue
			}
			n, err := strconv.Atoi(target)
			if err != nil {
				return frame, cleanup, fmt.Errorf("%s: invalid fd", target)
			}
			if w, ok := out.writers[n]; ok {
				out.writers[fd] = w
			}

		case syntax.RedirDupIn:
			target, err := expand.Literal(ctx, cfg, rd.Target)
			if err != nil {
				return frame, cleanup, err
			}
			if target == "-" {
				delete(out.readers, fd)
				continue
			}
			n, err := strconv.Atoi(target)
			if err != nil {
				return frame, cleanup, fmt.Errorf("%s: invalid fd", target)
			}
			if rr, ok := out.readers[n]; ok {
				out.readers[fd] = rr
				if fd == 0 {
					out.in = rr
				}
			}

		case syntax.RedirOutErr, syntax.RedirOutErrAppend:
			path, err := expand.Literal(ctx, cfg, rd.Target)
			if err != nil {
				return frame, cleanup, err
			}
			abs := r.FS.ResolvePath(r.cwd, path)
			buf := &bytes.Buffer{}
			pending = append(pending, &pendingWrite{buf: buf, path: abs, append: rd.Op == syntax.RedirOutErrAppend})
			out.writers[1] = buf
			out.writers[2] = buf
		}

		if rd.VarFd != "" {
			_ = r.State.Env.Set(rd.VarFd, variableString(strconv.Itoa(fd), false))
		}
	}

	return out, cleanup, nil
}

func defaultFd(op syntax.RedirOp) int {
	switch op {
	case syntax.RedirIn, syntax.RedirHeredoc, syntax.RedirHeredocDash, syntax.RedirHereString, syntax.RedirDupIn, syntax.RedirReadWrite:
		return 0
	default:
		return 1
	}
}
