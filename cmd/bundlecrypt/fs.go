package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/absfs/absfs"
)

// rootedFS exposes a directory on the host filesystem as an
// absfs.FileSystem rooted at "/".
type rootedFS struct {
	root string
}

func newRootedFS(root string) (*rootedFS, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &rootedFS{root: abs}, nil
}

func (fs *rootedFS) path(name string) string {
	return filepath.Join(fs.root, filepath.FromSlash(name))
}

func (fs *rootedFS) OpenFile(name string, flag int, perm os.FileMode) (absfs.File, error) {
	return os.OpenFile(fs.path(name), flag, perm)
}

func (fs *rootedFS) Open(name string) (absfs.File, error) {
	return fs.OpenFile(name, os.O_RDONLY, 0)
}

func (fs *rootedFS) Create(name string) (absfs.File, error) {
	return fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

func (fs *rootedFS) Mkdir(name string, perm os.FileMode) error {
	return os.Mkdir(fs.path(name), perm)
}

func (fs *rootedFS) MkdirAll(name string, perm os.FileMode) error {
	return os.MkdirAll(fs.path(name), perm)
}

func (fs *rootedFS) Remove(name string) error {
	return os.Remove(fs.path(name))
}

func (fs *rootedFS) RemoveAll(path string) error {
	return os.RemoveAll(fs.path(path))
}

func (fs *rootedFS) Rename(oldpath, newpath string) error {
	return os.Rename(fs.path(oldpath), fs.path(newpath))
}

func (fs *rootedFS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(fs.path(name))
}

func (fs *rootedFS) Chmod(name string, mode os.FileMode) error {
	return os.Chmod(fs.path(name), mode)
}

func (fs *rootedFS) Chtimes(name string, atime, mtime time.Time) error {
	return os.Chtimes(fs.path(name), atime, mtime)
}

func (fs *rootedFS) Chown(name string, uid, gid int) error {
	return os.Chown(fs.path(name), uid, gid)
}

func (fs *rootedFS) Separator() uint8 {
	return '/'
}

func (fs *rootedFS) ListSeparator() uint8 {
	return os.PathListSeparator
}

func (fs *rootedFS) Chdir(dir string) error {
	return nil
}

func (fs *rootedFS) Getwd() (string, error) {
	return "/", nil
}

func (fs *rootedFS) TempDir() string {
	return os.TempDir()
}

func (fs *rootedFS) Truncate(name string, size int64) error {
	return os.Truncate(fs.path(name), size)
}
