package vfs

import (
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type nodeKind uint8

const (
	kindFile nodeKind = iota
	kindDir
	kindSymlink
)

type node struct {
	kind    nodeKind
	data    []byte
	mode    fs.FileMode
	modTime time.Time
	target  string // kindSymlink only
}

// File is the construction-time payload for seeding a MemFS: either
// Text or Bytes (Text wins if both are set), plus an optional mode.
type File struct {
	Text  string
	Bytes []byte
	Mode  fs.FileMode
}

// MemFS is the default, fully in-memory FS backend. It stores a sparse
// map from normalized absolute path to node; every operation takes the
// single mutex, so from the caller's perspective every call is atomic,
// satisfying the single-threaded-model invariant of spec.md §5.
type MemFS struct {
	mu    sync.Mutex
	nodes map[string]*node
	now   func() time.Time
}

// NewMemFS builds a MemFS seeded with the given absolute-path -> File
// mapping. Parent directories are created implicitly.
func NewMemFS(files map[string]File) *MemFS {
	m := &MemFS{
		nodes: map[string]*node{"/": {kind: kindDir, mode: 0o755}},
		now:   time.Now,
	}
	for path, f := range files {
		data := f.Bytes
		if f.Text != "" {
			data = []byte(f.Text)
		}
		mode := f.Mode
		if mode == 0 {
			mode = 0o644
		}
		m.mkdirAllLocked(normalize(path))
		dir, _ := splitParent(path)
		m.mkdirAllLocked(dir)
		m.nodes[normalize(path)] = &node{kind: kindFile, data: data, mode: mode, modTime: m.now()}
	}
	return m
}

func (m *MemFS) mkdirAllLocked(path string) {
	path = normalize(path)
	if path == "/" {
		return
	}
	dir, _ := splitParent(path)
	m.mkdirAllLocked(dir)
	if _, ok := m.nodes[path]; !ok {
		m.nodes[path] = &node{kind: kindDir, mode: 0o755, modTime: m.now()}
	}
}

func (m *MemFS) resolveSymlink(path string, depth int) (string, *node, error) {
	if depth > 40 {
		return "", nil, &Error{Kind: Io, Path: path, Err: errTooManySymlinks}
	}
	n, ok := m.nodes[path]
	if !ok {
		return path, nil, &Error{Kind: NotFound, Path: path}
	}
	if n.kind != kindSymlink {
		return path, n, nil
	}
	target := n.target
	if !strings.HasPrefix(target, "/") {
		dir, _ := splitParent(path)
		target = ResolvePath(dir, target)
	}
	return m.resolveSymlink(target, depth+1)
}

var errTooManySymlinks = errString("too many levels of symbolic links")

type errString string

func (e errString) Error() string { return string(e) }

func (m *MemFS) Stat(path string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := normalize(path)
	rp, n, err := m.resolveSymlink(p, 0)
	if err != nil {
		return Info{}, err
	}
	return toInfo(rp, n, false), nil
}

func (m *MemFS) Lstat(path string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := normalize(path)
	n, ok := m.nodes[p]
	if !ok {
		return Info{}, &Error{Kind: NotFound, Path: path}
	}
	return toInfo(p, n, n.kind == kindSymlink), nil
}

func toInfo(path string, n *node, isLink bool) Info {
	name := path
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		name = path[idx+1:]
	}
	if name == "" {
		name = "/"
	}
	return Info{
		Name:      name,
		Size:      int64(len(n.data)),
		Mode:      n.mode,
		ModTime:   n.modTime,
		IsDir:     n.kind == kindDir,
		IsSymlink: isLink,
	}
}

func (m *MemFS) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _, err := m.resolveSymlink(normalize(path), 0)
	return err == nil
}

func (m *MemFS) ReadFile(path string) (string, error) {
	b, err := m.ReadFileBytes(path)
	return string(b), err
}

func (m *MemFS) ReadFileBytes(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, n, err := m.resolveSymlink(normalize(path), 0)
	if err != nil {
		return nil, err
	}
	if n.kind == kindDir {
		return nil, &Error{Kind: IsDirectoryKind, Path: path}
	}
	out := make([]byte, len(n.data))
	copy(out, n.data)
	return out, nil
}

func (m *MemFS) WriteFile(path string, data []byte, mode fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := normalize(path)
	dir, _ := splitParent(p)
	if dn, ok := m.nodes[dir]; !ok || dn.kind != kindDir {
		return &Error{Kind: NotDirectory, Path: path}
	}
	if existing, ok := m.nodes[p]; ok && existing.kind == kindDir {
		return &Error{Kind: IsDirectoryKind, Path: path}
	}
	if mode == 0 {
		mode = 0o644
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.nodes[p] = &node{kind: kindFile, data: buf, mode: mode, modTime: m.now()}
	return nil
}

func (m *MemFS) AppendFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := normalize(path)
	n, ok := m.nodes[p]
	if !ok {
		dir, _ := splitParent(p)
		if dn, ok := m.nodes[dir]; !ok || dn.kind != kindDir {
			return &Error{Kind: NotDirectory, Path: path}
		}
		m.nodes[p] = &node{kind: kindFile, data: append([]byte(nil), data...), mode: 0o644, modTime: m.now()}
		return nil
	}
	if n.kind == kindDir {
		return &Error{Kind: IsDirectoryKind, Path: path}
	}
	n.data = append(n.data, data...)
	n.modTime = m.now()
	return nil
}

func (m *MemFS) ReadDir(path string) ([]DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := normalize(path)
	rp, n, err := m.resolveSymlink(p, 0)
	if err != nil {
		return nil, err
	}
	if n.kind != kindDir {
		return nil, &Error{Kind: NotDirectory, Path: path}
	}
	prefix := rp
	if prefix != "/" {
		prefix += "/"
	}
	var entries []DirEntry
	for candidate, cn := range m.nodes {
		if candidate == rp || !strings.HasPrefix(candidate, prefix) {
			continue
		}
		rest := strings.TrimPrefix(candidate, prefix)
		if strings.Contains(rest, "/") {
			continue // grandchild, not a direct child
		}
		entries = append(entries, DirEntry{Name: rest, IsDir: cn.kind == kindDir})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (m *MemFS) Mkdir(path string, recursive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := normalize(path)
	if _, ok := m.nodes[p]; ok {
		if recursive {
			return nil
		}
		return &Error{Kind: Exists, Path: path}
	}
	dir, _ := splitParent(p)
	if _, ok := m.nodes[dir]; !ok {
		if !recursive {
			return &Error{Kind: NotFound, Path: path}
		}
		m.mkdirAllLocked(dir)
	}
	m.nodes[p] = &node{kind: kindDir, mode: 0o755, modTime: m.now()}
	return nil
}

func (m *MemFS) Remove(path string, recursive, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := normalize(path)
	n, ok := m.nodes[p]
	if !ok {
		if force {
			return nil
		}
		return &Error{Kind: NotFound, Path: path}
	}
	if n.kind == kindDir {
		children := m.childPathsLocked(p)
		if len(children) > 0 && !recursive {
			return &Error{Kind: NotEmpty, Path: path}
		}
		for _, c := range children {
			delete(m.nodes, c)
		}
	}
	delete(m.nodes, p)
	return nil
}

func (m *MemFS) childPathsLocked(dir string) []string {
	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	var out []string
	for candidate := range m.nodes {
		if candidate != dir && strings.HasPrefix(candidate, prefix) {
			out = append(out, candidate)
		}
	}
	return out
}

func (m *MemFS) Rename(from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fp, tp := normalize(from), normalize(to)
	n, ok := m.nodes[fp]
	if !ok {
		return &Error{Kind: NotFound, Path: from}
	}
	toDir, _ := splitParent(tp)
	if _, ok := m.nodes[toDir]; !ok {
		return &Error{Kind: NotFound, Path: to}
	}
	prefix := fp
	if n.kind == kindDir {
		prefix += "/"
	}
	moves := map[string]*node{tp: n}
	if n.kind == kindDir {
		for candidate, cn := range m.nodes {
			if strings.HasPrefix(candidate, prefix) {
				moves[tp+"/"+strings.TrimPrefix(candidate, prefix)] = cn
			}
		}
	}
	for _, c := range m.childPathsLocked(fp) {
		delete(m.nodes, c)
	}
	delete(m.nodes, fp)
	for dst, dn := range moves {
		m.nodes[dst] = dn
	}
	return nil
}

// Copy recursively copies from to to. Directory subtrees fan out their
// per-child copies across goroutines with errgroup, since nothing about
// one child's copy depends on another's; results are irrelevant to
// ordering because the destination map write happens under the single
// MemFS mutex regardless of which goroutine reaches it first, and the
// eventual ReadDir/glob callers always see a sorted view.
func (m *MemFS) Copy(from, to string, recursive bool) error {
	m.mu.Lock()
	fp := normalize(from)
	n, ok := m.nodes[fp]
	if !ok {
		m.mu.Unlock()
		return &Error{Kind: NotFound, Path: from}
	}
	if n.kind == kindDir && !recursive {
		m.mu.Unlock()
		return &Error{Kind: IsDirectoryKind, Path: from}
	}
	var children []string
	if n.kind == kindDir {
		children = m.childPathsLocked(fp)
	}
	m.mu.Unlock()

	if err := m.copyOne(fp, normalize(to)); err != nil {
		return err
	}
	if len(children) == 0 {
		return nil
	}

	var g errgroup.Group
	for _, c := range children {
		c := c
		rel := strings.TrimPrefix(c, fp+"/")
		dst := normalize(to) + "/" + rel
		g.Go(func() error { return m.copyOne(c, dst) })
	}
	return g.Wait()
}

func (m *MemFS) copyOne(src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[src]
	if !ok {
		return &Error{Kind: NotFound, Path: src}
	}
	dir, _ := splitParent(dst)
	m.mkdirAllLocked(dir)
	cp := *n
	if n.kind == kindFile {
		cp.data = append([]byte(nil), n.data...)
	}
	cp.modTime = m.now()
	m.nodes[dst] = &cp
	return nil
}

func (m *MemFS) Symlink(target, linkPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := normalize(linkPath)
	if _, ok := m.nodes[p]; ok {
		return &Error{Kind: Exists, Path: linkPath}
	}
	dir, _ := splitParent(p)
	m.mkdirAllLocked(dir)
	m.nodes[p] = &node{kind: kindSymlink, target: target, mode: fs.ModeSymlink | 0o777, modTime: m.now()}
	return nil
}

func (m *MemFS) Readlink(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[normalize(path)]
	if !ok || n.kind != kindSymlink {
		return "", &Error{Kind: InvalidPath, Path: path}
	}
	return n.target, nil
}

func (m *MemFS) Chmod(path string, mode fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[normalize(path)]
	if !ok {
		return &Error{Kind: NotFound, Path: path}
	}
	n.mode = n.mode&fs.ModeType | mode.Perm()
	return nil
}

func (m *MemFS) RealPath(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, _, err := m.resolveSymlink(normalize(path), 0)
	return p, err
}

func (m *MemFS) ResolvePath(cwd, rel string) string { return ResolvePath(cwd, rel) }
