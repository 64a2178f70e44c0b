package iso9660

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
)

type extent struct {
	lba  uint32
	size uint32
}

// Entry is a file or directory in the image.
type Entry struct {
	Name string
	// Path is slash-separated and relative to the image root. It is built
	// from raw names and is not cleaned.
	Path    string
	Dir     bool
	Size    int64
	extents []extent
}

// Root returns the root directory of the tree selected by the name source.
func (img *Image) Root() Entry {
	rec := img.primary
	if img.source == NamesJoliet && img.joliet != nil {
		rec = *img.joliet
	}
	return Entry{Dir: true, Size: int64(rec.size), extents: []extent{{lba: rec.extent, size: rec.size}}}
}

// ReadDir lists the children of dir in on-disc order. Multi-extent files
// are merged into a single entry. Under Rock Ridge naming, relocated deep
// directories appear at their logical place.
func (img *Image) ReadDir(dir Entry) ([]Entry, error) {
	if !dir.Dir || len(dir.extents) == 0 {
		return nil, fmt.Errorf("%s is not a directory", dir.Path)
	}
	var out []Entry
	for _, ext := range dir.extents {
		data, err := img.readExtent(ext.lba, ext.size)
		if err != nil {
			return nil, err
		}
		records, err := parseDirectory(data)
		if err != nil {
			return nil, err
		}
		if records, err = img.relocate(records); err != nil {
			return nil, err
		}
		entries, err := mergeRecords(dir.Path, records, img.entryName)
		if err != nil {
			return nil, err
		}
		out = append(out, entries...)
	}
	return out, nil
}

// mergeRecords turns the records of one directory extent into entries.
// Continuation records of a multi-extent file extend the entry they follow;
// when the head record is dropped for an empty name, its continuations are
// dropped with it.
func mergeRecords(dirPath string, records []record, nameOf func(record) (string, bool, error)) ([]Entry, error) {
	var out []Entry
	continuing := false
	target := -1
	for _, rec := range records {
		if rec.isSelfOrParent() {
			continue
		}
		more := rec.flags&flagMultiExtent != 0
		if continuing {
			if target >= 0 {
				last := &out[target]
				last.extents = append(last.extents, extent{lba: rec.extent, size: rec.size})
				last.Size += int64(rec.size)
			}
			continuing = more
			continue
		}
		name, ok, err := nameOf(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: decode name in %q: %v", ErrCorrupt, dirPath, err)
		}
		continuing = more
		target = -1
		if !ok {
			continue
		}
		out = append(out, Entry{
			Name:    name,
			Path:    childPath(dirPath, name),
			Dir:     rec.isDir(),
			Size:    int64(rec.size),
			extents: []extent{{lba: rec.extent, size: rec.size}},
		})
		target = len(out) - 1
	}
	return out, nil
}

// childPath joins without cleaning so a hostile "." or ".." name stays
// visible to callers that validate paths.
func childPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func (img *Image) entryName(rec record) (string, bool, error) {
	if rec.joliet || img.source == NamesJoliet {
		name, err := decodeJoliet(rec.ident)
		return name, name != "", err
	}
	if img.source == NamesRockRidge {
		if name, ok := img.rockRidgeName(rec); ok {
			return name, true, nil
		}
	}
	name := cleanPlain(rec.ident, img.opts.LowercasePlain)
	return name, name != "", nil
}

// WalkFunc is called for every entry below the starting directory. Returning
// fs.SkipAll stops the walk without error.
type WalkFunc func(e Entry) error

// Walk visits every entry below start breadth-first: all entries at one
// depth before any deeper entry, in on-disc order within a directory.
// Directory extents already visited are not entered again.
func (img *Image) Walk(ctx context.Context, start Entry, fn WalkFunc) error {
	visited := map[uint32]struct{}{}
	if len(start.extents) > 0 {
		visited[start.extents[0].lba] = struct{}{}
	}
	queue := []Entry{start}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir := queue[0]
		queue = queue[1:]
		children, err := img.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := fn(child); err != nil {
				if errors.Is(err, fs.SkipAll) {
					return nil
				}
				return err
			}
			if !child.Dir {
				continue
			}
			if _, seen := visited[child.extents[0].lba]; seen {
				continue
			}
			visited[child.extents[0].lba] = struct{}{}
			queue = append(queue, child)
		}
	}
	return nil
}

// FindDir returns the first directory, in breadth-first order, whose name
// matches name case-insensitively.
func (img *Image) FindDir(ctx context.Context, name string) (Entry, bool, error) {
	var found Entry
	ok := false
	err := img.Walk(ctx, img.Root(), func(e Entry) error {
		if e.Dir && strings.EqualFold(e.Name, name) {
			found, ok = e, true
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return Entry{}, false, err
	}
	return found, ok, nil
}

// Open returns a reader over the contents of a file entry.
func (img *Image) Open(e Entry) (io.Reader, error) {
	if e.Dir {
		return nil, fmt.Errorf("%s is a directory", e.Path)
	}
	readers := make([]io.Reader, 0, len(e.extents))
	for _, ext := range e.extents {
		off := int64(ext.lba) * LogicalBlockSize
		if off+int64(ext.size) > img.size {
			return nil, fmt.Errorf("%w: file %q extends past end of image", ErrCorrupt, e.Path)
		}
		readers = append(readers, io.NewSectionReader(img.view, off, int64(ext.size)))
	}
	if len(readers) == 1 {
		return readers[0], nil
	}
	return io.MultiReader(readers...), nil
}

// Lookup resolves a slash-separated path from the root, matching each
// segment case-insensitively. An empty path yields the root.
func (img *Image) Lookup(p string) (Entry, bool, error) {
	current := img.Root()
	for _, segment := range strings.Split(strings.Trim(p, "/"), "/") {
		if segment == "" {
			continue
		}
		if !current.Dir {
			return Entry{}, false, nil
		}
		children, err := img.ReadDir(current)
		if err != nil {
			return Entry{}, false, err
		}
		matched := false
		for _, child := range children {
			if strings.EqualFold(child.Name, segment) {
				current, matched = child, true
				break
			}
		}
		if !matched {
			return Entry{}, false, nil
		}
	}
	return current, true, nil
}
