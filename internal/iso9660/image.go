package iso9660

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// LogicalBlockSize is the user-data size of one sector and the only logical
// block size this reader accepts.
const LogicalBlockSize = 2048

const (
	descriptorStart   = 16
	descriptorPrimary = 1
	descriptorSupp    = 2
	descriptorEnd     = 255
	maxDescriptors    = 64
)

var standardID = []byte("CD001")

// ErrCorrupt marks structural damage: a missing primary descriptor, a
// truncated directory record, or an extent past the end of the image.
var ErrCorrupt = errors.New("corrupt iso9660 image")

// Options tune how an image is read.
type Options struct {
	// SectorSize is the physical sector size: 2048, 2336, or 2352.
	SectorSize int
	// PreferRockRidge takes names from Rock Ridge NM entries even when a
	// Joliet tree is present.
	PreferRockRidge bool
	// LowercasePlain lowercases names taken from plain ISO 9660 identifiers.
	LowercasePlain bool
}

// NameSource identifies which naming scheme an Image reports.
type NameSource string

const (
	NamesJoliet    NameSource = "joliet"
	NamesRockRidge NameSource = "rock-ridge"
	NamesPlain     NameSource = "iso9660"
)

// Image is an opened ISO 9660 image.
type Image struct {
	view      io.ReaderAt
	size      int64
	opts      Options
	primary   record
	joliet    *record
	rockRidge bool
	suspSkip  int
	source    NameSource
	volumeID  string
}

// Open parses the volume descriptors of the image in r. size is the
// physical size of the image in bytes.
func Open(r io.ReaderAt, size int64, opts Options) (*Image, error) {
	if opts.SectorSize == 0 {
		opts.SectorSize = LogicalBlockSize
	}
	view, logicalSize, err := newUserDataView(r, size, opts.SectorSize)
	if err != nil {
		return nil, err
	}
	img := &Image{view: view, size: logicalSize, opts: opts}
	if err := img.readDescriptors(); err != nil {
		return nil, err
	}
	if err := img.detectRockRidge(); err != nil {
		return nil, err
	}
	img.source = img.chooseSource()
	return img, nil
}

// IsImage reports whether r carries the CD001 signature at sector 16 for the
// given physical sector size.
func IsImage(r io.ReaderAt, size int64, sectorSize int) bool {
	if sectorSize == 0 {
		sectorSize = LogicalBlockSize
	}
	view, _, err := newUserDataView(r, size, sectorSize)
	if err != nil {
		return false
	}
	buf := make([]byte, 6)
	if _, err := view.ReadAt(buf, descriptorStart*LogicalBlockSize); err != nil {
		return false
	}
	return bytes.Equal(buf[1:6], standardID)
}

// NameSource reports which naming scheme entries use.
func (img *Image) NameSource() NameSource { return img.source }

// VolumeID returns the trimmed volume identifier from the primary descriptor.
func (img *Image) VolumeID() string { return img.volumeID }

func (img *Image) chooseSource() NameSource {
	switch {
	case img.opts.PreferRockRidge && img.rockRidge:
		return NamesRockRidge
	case img.joliet != nil:
		return NamesJoliet
	case img.rockRidge:
		return NamesRockRidge
	default:
		return NamesPlain
	}
}

func (img *Image) readDescriptors() error {
	buf := make([]byte, LogicalBlockSize)
	foundPrimary := false
scan:
	for i := 0; i < maxDescriptors; i++ {
		off := int64(descriptorStart+i) * LogicalBlockSize
		if off+LogicalBlockSize > img.size {
			break
		}
		if _, err := img.view.ReadAt(buf, off); err != nil {
			return fmt.Errorf("%w: read volume descriptor %d: %v", ErrCorrupt, i, err)
		}
		if !bytes.Equal(buf[1:6], standardID) {
			break scan
		}
		switch buf[0] {
		case descriptorPrimary:
			if foundPrimary {
				continue
			}
			if bs := binary.LittleEndian.Uint16(buf[128:130]); bs != LogicalBlockSize {
				return fmt.Errorf("%w: unsupported logical block size %d", ErrCorrupt, bs)
			}
			root, _, err := parseRecord(buf[156:190])
			if err != nil {
				return fmt.Errorf("%w: primary root record: %v", ErrCorrupt, err)
			}
			img.primary = root
			img.volumeID = string(bytes.TrimRight(buf[40:72], " \x00"))
			foundPrimary = true
		case descriptorSupp:
			if img.joliet != nil || !isJolietEscape(buf[88:120]) {
				continue
			}
			root, _, err := parseRecord(buf[156:190])
			if err != nil {
				return fmt.Errorf("%w: joliet root record: %v", ErrCorrupt, err)
			}
			root.joliet = true
			img.joliet = &root
		case descriptorEnd:
			break scan
		}
	}
	if !foundPrimary {
		return fmt.Errorf("%w: primary volume descriptor not found", ErrCorrupt)
	}
	return nil
}

func isJolietEscape(escapes []byte) bool {
	for _, seq := range [][]byte{[]byte("%/@"), []byte("%/C"), []byte("%/E")} {
		if bytes.Contains(escapes, seq) {
			return true
		}
	}
	return false
}

// readExtent reads length bytes starting at logical block lba.
func (img *Image) readExtent(lba uint32, length uint32) ([]byte, error) {
	off := int64(lba) * LogicalBlockSize
	if off+int64(length) > img.size {
		return nil, fmt.Errorf("%w: extent %d (+%d bytes) past end of image", ErrCorrupt, lba, length)
	}
	buf := make([]byte, length)
	if _, err := img.view.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("%w: read extent %d: %v", ErrCorrupt, lba, err)
	}
	return buf, nil
}

// userDataView exposes the 2048 byte user-data area of every physical sector
// as a contiguous stream.
type userDataView struct {
	r          io.ReaderAt
	sectorSize int64
	dataOffset int64
}

func newUserDataView(r io.ReaderAt, size int64, sectorSize int) (io.ReaderAt, int64, error) {
	switch sectorSize {
	case LogicalBlockSize:
		return r, size, nil
	case 2336:
		sectors := size / 2336
		return &userDataView{r: r, sectorSize: 2336, dataOffset: 8}, sectors * LogicalBlockSize, nil
	case 2352:
		sectors := size / 2352
		offset := int64(16)
		// Mode 2 sectors carry an 8 byte subheader after the 16 byte header.
		mode := make([]byte, 1)
		if _, err := r.ReadAt(mode, descriptorStart*2352+15); err == nil && mode[0] == 2 {
			offset = 24
		}
		return &userDataView{r: r, sectorSize: 2352, dataOffset: offset}, sectors * LogicalBlockSize, nil
	default:
		return nil, 0, fmt.Errorf("unsupported sector size %d", sectorSize)
	}
}

func (v *userDataView) ReadAt(p []byte, off int64) (int, error) {
	total := 0
	for len(p) > 0 {
		sector := off / LogicalBlockSize
		within := off % LogicalBlockSize
		chunk := int64(len(p))
		if rest := LogicalBlockSize - within; chunk > rest {
			chunk = rest
		}
		n, err := v.r.ReadAt(p[:chunk], sector*v.sectorSize+v.dataOffset+within)
		total += n
		if err != nil {
			return total, err
		}
		p = p[chunk:]
		off += chunk
	}
	return total, nil
}
