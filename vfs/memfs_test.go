package vfs

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestMemFSReadWrite(t *testing.T) {
	c := qt.New(t)
	fsys := NewMemFS(map[string]File{
		"/home/user/greeting.txt": {Text: "hello\n"},
	})

	data, err := fsys.ReadFile("/home/user/greeting.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(data, qt.Equals, "hello\n")

	c.Assert(fsys.Exists("/home/user"), qt.IsTrue)
	info, err := fsys.Stat("/home/user")
	c.Assert(err, qt.IsNil)
	c.Assert(info.IsDir, qt.IsTrue)

	err = fsys.WriteFile("/home/user/new.txt", []byte("data"), 0o644)
	c.Assert(err, qt.IsNil)
	entries, err := fsys.ReadDir("/home/user")
	c.Assert(err, qt.IsNil)
	c.Assert(len(entries), qt.Equals, 2)
	c.Assert(entries[0].Name, qt.Equals, "greeting.txt")
	c.Assert(entries[1].Name, qt.Equals, "new.txt")
}

func TestMemFSMkdirRemove(t *testing.T) {
	c := qt.New(t)
	fsys := NewMemFS(nil)

	c.Assert(fsys.Mkdir("/a/b/c", true), qt.IsNil)
	c.Assert(fsys.Exists("/a/b/c"), qt.IsTrue)

	err := fsys.Remove("/a", false, false)
	var verr *Error
	c.Assert(errorsAs(err, &verr), qt.IsTrue)
	c.Assert(verr.Kind, qt.Equals, NotEmpty)

	c.Assert(fsys.Remove("/a", true, false), qt.IsNil)
	c.Assert(fsys.Exists("/a"), qt.IsFalse)
}

func TestMemFSCopyRecursive(t *testing.T) {
	c := qt.New(t)
	fsys := NewMemFS(map[string]File{
		"/src/one.txt":     {Text: "1"},
		"/src/nested/two":  {Text: "2"},
		"/src/nested/more": {Text: "3"},
	})
	c.Assert(fsys.Copy("/src", "/dst", true), qt.IsNil)

	data, err := fsys.ReadFile("/dst/nested/two")
	c.Assert(err, qt.IsNil)
	c.Assert(data, qt.Equals, "2")

	data, err = fsys.ReadFile("/dst/one.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(data, qt.Equals, "1")
}

func TestMemFSSymlink(t *testing.T) {
	c := qt.New(t)
	fsys := NewMemFS(map[string]File{"/real": {Text: "x"}})
	c.Assert(fsys.Symlink("/real", "/link"), qt.IsNil)

	data, err := fsys.ReadFile("/link")
	c.Assert(err, qt.IsNil)
	c.Assert(data, qt.Equals, "x")

	target, err := fsys.Readlink("/link")
	c.Assert(err, qt.IsNil)
	c.Assert(target, qt.Equals, "/real")

	info, err := fsys.Lstat("/link")
	c.Assert(err, qt.IsNil)
	c.Assert(info.IsSymlink, qt.IsTrue)
}

func TestResolvePath(t *testing.T) {
	c := qt.New(t)
	c.Assert(ResolvePath("/home/user", "../other"), qt.Equals, "/home/other")
	c.Assert(ResolvePath("/home/user", "/abs/path"), qt.Equals, "/abs/path")
	c.Assert(ResolvePath("/home/user", "./x/../y"), qt.Equals, "/home/user/y")
}

func errorsAs(err error, target **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
