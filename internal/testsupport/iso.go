package testsupport

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf16"
)

const isoBlock = 2048

const (
	treePrimary = iota
	treeJoliet
)

type isoNode struct {
	name     string
	dir      bool
	data     []byte
	split    int
	loop     bool
	moved    bool
	link     *isoNode
	children []*isoNode

	lba     [2]uint32
	size    [2]uint32
	parts   []uint32
	ceOff   uint32
	ceBlock uint32
}

// ISOBuilder writes small ISO 9660 images for tests. Names are given as the
// long form; the primary tree receives upper-cased 8.3 identifiers, the
// Joliet tree the long names, and Rock Ridge NM entries the long names.
type ISOBuilder struct {
	root           *isoNode
	joliet         bool
	rockRidge      bool
	rrContinuation bool
	sectorSize     int
	volumeID       string
}

// NewISOBuilder returns an empty builder producing 2048 byte sectors.
func NewISOBuilder() *ISOBuilder {
	return &ISOBuilder{root: &isoNode{dir: true}, sectorSize: isoBlock, volumeID: "ROLLER"}
}

// WithJoliet adds a Joliet supplementary volume descriptor.
func (b *ISOBuilder) WithJoliet() *ISOBuilder { b.joliet = true; return b }

// WithRockRidge adds SUSP/Rock Ridge NM entries to the primary tree. When
// continuation is true every NM entry is stored in a CE continuation area.
func (b *ISOBuilder) WithRockRidge(continuation bool) *ISOBuilder {
	b.rockRidge = true
	b.rrContinuation = continuation
	return b
}

// WithSectorSize wraps every 2048 byte block in a raw 2336 or 2352 byte
// sector.
func (b *ISOBuilder) WithSectorSize(size int) *ISOBuilder { b.sectorSize = size; return b }

// AddDir adds a directory (and its parents).
func (b *ISOBuilder) AddDir(path string) *ISOBuilder {
	b.ensureDir(path)
	return b
}

// AddFile adds a file with the given contents, creating parent directories.
func (b *ISOBuilder) AddFile(path string, data []byte) *ISOBuilder {
	b.addFile(path, data, 1)
	return b
}

// AddSplitFile adds a file recorded as parts multi-extent records.
func (b *ISOBuilder) AddSplitFile(path string, data []byte, parts int) *ISOBuilder {
	b.addFile(path, data, parts)
	return b
}

// AddCycle adds a directory record named name under dir that points back at
// the root directory extent.
func (b *ISOBuilder) AddCycle(dir, name string) *ISOBuilder {
	parent := b.ensureDir(dir)
	parent.children = append(parent.children, &isoNode{name: name, dir: true, loop: true})
	return b
}

// RelocateDir moves the directory at path under rr_moved the way mkisofs
// does for deep trees: a CL placeholder stays at the original place and the
// moved directory carries RE. Only meaningful together with WithRockRidge.
func (b *ISOBuilder) RelocateDir(path string) *ISOBuilder {
	node := b.ensureDir(path)
	parent := b.parentOf(node)
	children := make([]*isoNode, 0, len(parent.children))
	for _, child := range parent.children {
		if child == node {
			child = &isoNode{name: node.name, link: node}
		}
		children = append(children, child)
	}
	parent.children = children
	node.moved = true
	movedDir := b.ensureDir("rr_moved")
	movedDir.children = append(movedDir.children, node)
	return b
}

func (b *ISOBuilder) addFile(path string, data []byte, parts int) {
	dir, name := splitISOPath(path)
	parent := b.ensureDir(dir)
	parent.children = append(parent.children, &isoNode{name: name, data: data, split: max(parts, 1)})
}

func (b *ISOBuilder) ensureDir(path string) *isoNode {
	node := b.root
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if segment == "" {
			continue
		}
		var next *isoNode
		for _, child := range node.children {
			if child.dir && !child.loop && child.name == segment {
				next = child
				break
			}
		}
		if next == nil {
			next = &isoNode{name: segment, dir: true}
			node.children = append(node.children, next)
		}
		node = next
	}
	return node
}

func splitISOPath(path string) (string, string) {
	path = strings.Trim(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return "", path
}

// Write builds the image into dir/name and returns its path.
func (b *ISOBuilder) Write(t testing.TB, dir, name string) string {
	t.Helper()
	data, err := b.Build()
	if err != nil {
		t.Fatalf("build iso: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write iso: %v", err)
	}
	return path
}

// Build lays out and serializes the image.
func (b *ISOBuilder) Build() ([]byte, error) {
	dirs := b.directories()
	trees := []int{treePrimary}
	if b.joliet {
		trees = append(trees, treeJoliet)
	}

	descriptors := uint32(2 + len(trees) - 1)
	next := uint32(16) + descriptors

	// Directory sizes do not depend on extent numbers, so measure first.
	for _, tree := range trees {
		for i, dir := range dirs {
			parent := dir
			if i > 0 {
				parent = b.parentOf(dir)
			}
			size := uint32(len(b.dirBytes(dir, parent, tree)))
			dir.size[tree] = size
			dir.lba[tree] = next
			next += size / isoBlock
		}
	}

	var ceArea []byte
	ceStart := next
	if b.rockRidge && b.rrContinuation {
		for _, dir := range dirs {
			for _, child := range dir.children {
				child.ceBlock = ceStart
				child.ceOff = uint32(len(ceArea))
				ceArea = append(ceArea, nmEntry(child.name)...)
			}
		}
		next += blocksFor(len(ceArea))
	}

	var files []*isoNode
	for _, dir := range dirs {
		for _, child := range dir.children {
			if !child.dir && child.link == nil {
				files = append(files, child)
			}
		}
	}
	for _, file := range files {
		file.parts = nil
		for _, part := range splitSizes(len(file.data), file.split) {
			file.parts = append(file.parts, next)
			next += blocksFor(part)
		}
	}

	img := make([]byte, int(next)*isoBlock)
	slot := 16
	writeDescriptor(img[slot*isoBlock:], 1, dirs[0], treePrimary, next, b.volumeID)
	slot++
	if b.joliet {
		writeDescriptor(img[slot*isoBlock:], 2, dirs[0], treeJoliet, next, b.volumeID)
		slot++
	}
	terminator := img[slot*isoBlock:]
	terminator[0] = 255
	copy(terminator[1:6], "CD001")
	terminator[6] = 1

	for _, tree := range trees {
		for i, dir := range dirs {
			parent := dir
			if i > 0 {
				parent = b.parentOf(dir)
			}
			copy(img[int(dir.lba[tree])*isoBlock:], b.dirBytes(dir, parent, tree))
		}
	}
	copy(img[int(ceStart)*isoBlock:], ceArea)
	for _, file := range files {
		offset := 0
		for i, part := range splitSizes(len(file.data), file.split) {
			copy(img[int(file.parts[i])*isoBlock:], file.data[offset:offset+part])
			offset += part
		}
	}

	return wrapSectors(img, b.sectorSize)
}

func (b *ISOBuilder) directories() []*isoNode {
	out := []*isoNode{b.root}
	for i := 0; i < len(out); i++ {
		for _, child := range out[i].children {
			if child.dir && !child.loop {
				out = append(out, child)
			}
		}
	}
	return out
}

func (b *ISOBuilder) parentOf(target *isoNode) *isoNode {
	for _, dir := range b.directories() {
		for _, child := range dir.children {
			if child == target {
				return dir
			}
		}
	}
	return b.root
}

func (b *ISOBuilder) dirBytes(dir, parent *isoNode, tree int) []byte {
	var records [][]byte
	var selfSU []byte
	if tree == treePrimary && b.rockRidge && dir == b.root {
		selfSU = []byte{'S', 'P', 7, 1, 0xBE, 0xEF, 0}
	}
	records = append(records,
		dirRecord(dir.lba[tree], dir.size[tree], 0x02, []byte{0x00}, selfSU),
		dirRecord(parent.lba[tree], parent.size[tree], 0x02, []byte{0x01}, nil),
	)
	for _, child := range dir.children {
		var su []byte
		if tree == treePrimary && b.rockRidge {
			if b.rrContinuation {
				su = ceEntry(child.ceBlock, child.ceOff, uint32(len(nmEntry(child.name))))
			} else {
				su = nmEntry(child.name)
			}
		}
		ident := identFor(child, tree)
		rr := tree == treePrimary && b.rockRidge
		switch {
		case child.link != nil:
			if rr {
				su = append(su, clEntry(child.link.lba[tree])...)
			}
			records = append(records, dirRecord(0, 0, 0x00, ident, su))
		case child.loop:
			records = append(records, dirRecord(b.root.lba[tree], b.root.size[tree], 0x02, ident, su))
		case child.dir:
			if rr && child.moved {
				su = append(su, 'R', 'E', 4, 1)
			}
			records = append(records, dirRecord(child.lba[tree], child.size[tree], 0x02, ident, su))
		default:
			sizes := splitSizes(len(child.data), child.split)
			for i, size := range sizes {
				var flags byte
				if i < len(sizes)-1 {
					flags = 0x80
				}
				var lba uint32
				if i < len(child.parts) {
					lba = child.parts[i]
				}
				records = append(records, dirRecord(lba, uint32(size), flags, ident, su))
			}
		}
	}

	var buf []byte
	for _, rec := range records {
		if used := len(buf) % isoBlock; used+len(rec) > isoBlock {
			buf = append(buf, make([]byte, isoBlock-used)...)
		}
		buf = append(buf, rec...)
	}
	if rem := len(buf) % isoBlock; rem != 0 {
		buf = append(buf, make([]byte, isoBlock-rem)...)
	}
	return buf
}

func identFor(node *isoNode, tree int) []byte {
	if tree == treeJoliet {
		name := node.name
		if !node.dir {
			name += ";1"
		}
		units := utf16.Encode([]rune(name))
		out := make([]byte, len(units)*2)
		for i, u := range units {
			binary.BigEndian.PutUint16(out[i*2:], u)
		}
		return out
	}
	short := shortName(node.name, node.dir)
	if !node.dir {
		short += ";1"
	}
	return []byte(short)
}

// shortName maps a long name onto an upper-case 8.3 identifier.
func shortName(name string, dir bool) string {
	clean := func(s string, limit int) string {
		var b strings.Builder
		for _, r := range strings.ToUpper(s) {
			if b.Len() == limit {
				break
			}
			if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
				b.WriteRune(r)
			} else {
				b.WriteByte('_')
			}
		}
		return b.String()
	}
	if dir {
		return clean(name, 8)
	}
	base, ext := name, ""
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		base, ext = name[:i], name[i+1:]
	}
	return clean(base, 8) + "." + clean(ext, 3)
}

func nmEntry(name string) []byte {
	entry := []byte{'N', 'M', byte(5 + len(name)), 1, 0}
	return append(entry, name...)
}

func ceEntry(block, offset, length uint32) []byte {
	entry := make([]byte, 28)
	copy(entry, "CE")
	entry[2] = 28
	entry[3] = 1
	putBoth32(entry[4:12], block)
	putBoth32(entry[12:20], offset)
	putBoth32(entry[20:28], length)
	return entry
}

func clEntry(lba uint32) []byte {
	entry := make([]byte, 12)
	copy(entry, "CL")
	entry[2] = 12
	entry[3] = 1
	putBoth32(entry[4:12], lba)
	return entry
}

func dirRecord(lba, size uint32, flags byte, ident, su []byte) []byte {
	n := 33 + len(ident)
	if len(ident)%2 == 0 {
		n++
	}
	suStart := n
	n += len(su)
	if n%2 == 1 {
		n++
	}
	if n > 255 {
		panic(fmt.Sprintf("directory record too long: %d", n))
	}
	rec := make([]byte, n)
	rec[0] = byte(n)
	putBoth32(rec[2:10], lba)
	putBoth32(rec[10:18], size)
	rec[25] = flags
	putBoth16(rec[28:32], 1)
	rec[32] = byte(len(ident))
	copy(rec[33:], ident)
	copy(rec[suStart:], su)
	return rec
}

func writeDescriptor(buf []byte, kind byte, root *isoNode, tree int, blocks uint32, volumeID string) {
	buf[0] = kind
	copy(buf[1:6], "CD001")
	buf[6] = 1
	copy(buf[40:72], fmt.Sprintf("%-32s", volumeID))
	putBoth32(buf[80:88], blocks)
	if kind == 2 {
		copy(buf[88:91], "%/E")
	}
	putBoth16(buf[120:124], 1)
	putBoth16(buf[124:128], 1)
	putBoth16(buf[128:132], isoBlock)
	copy(buf[156:190], dirRecord(root.lba[tree], root.size[tree], 0x02, []byte{0x00}, nil))
	buf[881] = 1
}

func putBoth32(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b[0:4], v)
	binary.BigEndian.PutUint32(b[4:8], v)
}

func putBoth16(b []byte, v uint16) {
	binary.LittleEndian.PutUint16(b[0:2], v)
	binary.BigEndian.PutUint16(b[2:4], v)
}

func blocksFor(size int) uint32 {
	return uint32((size + isoBlock - 1) / isoBlock)
}

// splitSizes divides size into parts extents; every extent but the last is a
// whole number of blocks.
func splitSizes(size, parts int) []int {
	if parts <= 1 || size <= isoBlock {
		return []int{size}
	}
	per := int(blocksFor((size+parts-1)/parts)) * isoBlock
	var out []int
	for size > 0 {
		n := min(per, size)
		out = append(out, n)
		size -= n
	}
	return out
}

func wrapSectors(img []byte, sectorSize int) ([]byte, error) {
	switch sectorSize {
	case isoBlock:
		return img, nil
	case 2336, 2352:
	default:
		return nil, fmt.Errorf("unsupported sector size %d", sectorSize)
	}
	sectors := len(img) / isoBlock
	out := make([]byte, 0, sectors*sectorSize)
	for i := 0; i < sectors; i++ {
		sector := make([]byte, sectorSize)
		offset := 8
		if sectorSize == 2352 {
			copy(sector, []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00})
			sector[15] = 1
			offset = 16
		}
		copy(sector[offset:], img[i*isoBlock:(i+1)*isoBlock])
		out = append(out, sector...)
	}
	return out, nil
}
