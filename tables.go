package bundlecrypt

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/absfs/absfs"
	"github.com/vmihailenco/msgpack/v5"
)

// A table archive is a MessagePack map of table name to the table's raw
// MessagePack bytes, produced from the decrypted master data snapshot.

// TableArchive holds the decoded archive, one entry per table.
type TableArchive map[string]msgpack.RawMessage

// ParseTableArchive decodes a table archive blob.
func ParseTableArchive(data []byte) (TableArchive, error) {
	var archive TableArchive
	if err := msgpack.Unmarshal(data, &archive); err != nil {
		return nil, fmt.Errorf("failed to parse table archive: %w", err)
	}
	if len(archive) == 0 {
		return nil, fmt.Errorf("table archive contains no tables")
	}
	for name := range archive {
		if name == "" || strings.ContainsAny(name, "/\\") {
			return nil, fmt.Errorf("table archive contains unusable table name %q", name)
		}
	}
	return archive, nil
}

// Names returns the table names in sorted order.
func (a TableArchive) Names() []string {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExtractTables writes each table of the archive to dir/<name>.msgpack on
// the given filesystem, creating the directory first.
func ExtractTables(outputFS absfs.FileSystem, dir string, archive TableArchive) error {
	dir = path.Clean("/" + dir)
	if err := outputFS.MkdirAll(dir, 0755); err != nil {
		return NewPersistenceError("mkdir", dir, err)
	}

	for _, name := range archive.Names() {
		target := path.Join(dir, name+".msgpack")
		f, err := outputFS.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return NewPersistenceError("create", target, err)
		}
		if _, err := f.Write(archive[name]); err != nil {
			f.Close()
			return NewPersistenceError("write", target, err)
		}
		if err := f.Close(); err != nil {
			return NewPersistenceError("close", target, err)
		}
	}
	return nil
}
