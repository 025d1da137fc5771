package vfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/renameio/v2"
)

// HostOverlay maps a virtual POSIX root onto a real host directory, for
// embedding contexts that want the sandbox's filesystem to persist
// across process runs. Every write goes through renameio so a crash
// mid-write can never leave a torn file behind: the spec's "atomic
// per-call" write invariant holds even when the backing store is a real
// disk, not just by virtue of the single-threaded interpreter model.
type HostOverlay struct {
	root string
}

// NewHostOverlay roots the overlay at dir, which must already exist on
// the host.
func NewHostOverlay(dir string) (*HostOverlay, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &Error{Kind: NotDirectory, Path: dir}
	}
	return &HostOverlay{root: abs}, nil
}

func (h *HostOverlay) host(path string) string {
	return filepath.Join(h.root, filepath.FromSlash(normalize(path)))
}

func wrapErr(path string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case os.IsNotExist(err):
		return &Error{Kind: NotFound, Path: path, Err: err}
	case os.IsExist(err):
		return &Error{Kind: Exists, Path: path, Err: err}
	case os.IsPermission(err):
		return &Error{Kind: PermissionDenied, Path: path, Err: err}
	default:
		return &Error{Kind: Io, Path: path, Err: err}
	}
}

func (h *HostOverlay) Stat(path string) (Info, error) {
	fi, err := os.Stat(h.host(path))
	if err != nil {
		return Info{}, wrapErr(path, err)
	}
	return Info{Name: fi.Name(), Size: fi.Size(), Mode: fi.Mode(), ModTime: fi.ModTime(), IsDir: fi.IsDir()}, nil
}

func (h *HostOverlay) Lstat(path string) (Info, error) {
	fi, err := os.Lstat(h.host(path))
	if err != nil {
		return Info{}, wrapErr(path, err)
	}
	return Info{
		Name: fi.Name(), Size: fi.Size(), Mode: fi.Mode(), ModTime: fi.ModTime(),
		IsDir: fi.IsDir(), IsSymlink: fi.Mode()&fs.ModeSymlink != 0,
	}, nil
}

func (h *HostOverlay) Exists(path string) bool {
	_, err := os.Stat(h.host(path))
	return err == nil
}

func (h *HostOverlay) ReadFile(path string) (string, error) {
	b, err := h.ReadFileBytes(path)
	return string(b), err
}

func (h *HostOverlay) ReadFileBytes(path string) ([]byte, error) {
	b, err := os.ReadFile(h.host(path))
	if err != nil {
		return nil, wrapErr(path, err)
	}
	return b, nil
}

func (h *HostOverlay) WriteFile(path string, data []byte, mode fs.FileMode) error {
	if mode == 0 {
		mode = 0o644
	}
	if err := os.MkdirAll(filepath.Dir(h.host(path)), 0o755); err != nil {
		return wrapErr(path, err)
	}
	if err := renameio.WriteFile(h.host(path), data, mode); err != nil {
		return wrapErr(path, err)
	}
	return nil
}

func (h *HostOverlay) AppendFile(path string, data []byte) error {
	existing, err := h.ReadFileBytes(path)
	if err != nil && !IsNotFound(err) {
		return err
	}
	return h.WriteFile(path, append(existing, data...), 0)
}

func (h *HostOverlay) ReadDir(path string) ([]DirEntry, error) {
	des, err := os.ReadDir(h.host(path))
	if err != nil {
		return nil, wrapErr(path, err)
	}
	out := make([]DirEntry, len(des))
	for i, de := range des {
		out[i] = DirEntry{Name: de.Name(), IsDir: de.IsDir()}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (h *HostOverlay) Mkdir(path string, recursive bool) error {
	var err error
	if recursive {
		err = os.MkdirAll(h.host(path), 0o755)
	} else {
		err = os.Mkdir(h.host(path), 0o755)
	}
	return wrapErr(path, err)
}

func (h *HostOverlay) Remove(path string, recursive, force bool) error {
	var err error
	if recursive {
		err = os.RemoveAll(h.host(path))
	} else {
		err = os.Remove(h.host(path))
	}
	if err != nil && force && os.IsNotExist(err) {
		return nil
	}
	return wrapErr(path, err)
}

func (h *HostOverlay) Rename(from, to string) error {
	if err := os.MkdirAll(filepath.Dir(h.host(to)), 0o755); err != nil {
		return wrapErr(to, err)
	}
	return wrapErr(from, os.Rename(h.host(from), h.host(to)))
}

func (h *HostOverlay) Copy(from, to string, recursive bool) error {
	fi, err := os.Stat(h.host(from))
	if err != nil {
		return wrapErr(from, err)
	}
	if fi.IsDir() {
		if !recursive {
			return &Error{Kind: IsDirectoryKind, Path: from}
		}
		return h.copyDir(from, to)
	}
	data, err := os.ReadFile(h.host(from))
	if err != nil {
		return wrapErr(from, err)
	}
	return h.WriteFile(to, data, fi.Mode().Perm())
}

func (h *HostOverlay) copyDir(from, to string) error {
	entries, err := h.ReadDir(from)
	if err != nil {
		return err
	}
	if err := h.Mkdir(to, true); err != nil {
		return err
	}
	for _, e := range entries {
		src := strings.TrimSuffix(from, "/") + "/" + e.Name
		dst := strings.TrimSuffix(to, "/") + "/" + e.Name
		if err := h.Copy(src, dst, true); err != nil {
			return err
		}
	}
	return nil
}

func (h *HostOverlay) Symlink(target, linkPath string) error {
	return wrapErr(linkPath, os.Symlink(target, h.host(linkPath)))
}

func (h *HostOverlay) Readlink(path string) (string, error) {
	s, err := os.Readlink(h.host(path))
	return s, wrapErr(path, err)
}

func (h *HostOverlay) Chmod(path string, mode fs.FileMode) error {
	return wrapErr(path, os.Chmod(h.host(path), mode))
}

func (h *HostOverlay) RealPath(path string) (string, error) {
	p, err := filepath.EvalSymlinks(h.host(path))
	if err != nil {
		return "", wrapErr(path, err)
	}
	rel, err := filepath.Rel(h.root, p)
	if err != nil {
		return "", wrapErr(path, err)
	}
	return ResolvePath("/", filepath.ToSlash(rel)), nil
}

func (h *HostOverlay) ResolvePath(cwd, rel string) string { return ResolvePath(cwd, rel) }
