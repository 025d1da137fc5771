package vfs

import "strings"

// normalize resolves "." and ".." components of an absolute POSIX path
// without touching the backing store, per spec.md's ResolvePath
// invariant. It always returns a path starting with "/".
func normalize(p string) string {
	if p == "" {
		return "/"
	}
	segs := strings.Split(p, "/")
	out := make([]string, 0, len(segs))
	for _, s := range segs {
		switch s {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, s)
		}
	}
	return "/" + strings.Join(out, "/")
}

func splitParent(p string) (dir, base string) {
	p = normalize(p)
	if p == "/" {
		return "/", ""
	}
	idx := strings.LastIndexByte(p, '/')
	if idx <= 0 {
		return "/", p[idx+1:]
	}
	return p[:idx], p[idx+1:]
}

func segments(p string) []string {
	p = normalize(p)
	if p == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

// ResolvePath implements FS.ResolvePath for both backends in this
// package: join cwd and rel POSIX-style, then normalize.
func ResolvePath(cwd, rel string) string {
	if strings.HasPrefix(rel, "/") {
		return normalize(rel)
	}
	if cwd == "" {
		cwd = "/"
	}
	return normalize(cwd + "/" + rel)
}
