package iso9660

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const maxContinuations = 16

// detectRockRidge looks for the SUSP "SP" entry at the start of the System
// Use area of the root directory's "." record.
func (img *Image) detectRockRidge() error {
	data, err := img.readExtent(img.primary.extent, min(img.primary.size, LogicalBlockSize))
	if err != nil {
		return err
	}
	rec, _, err := parseRecord(data)
	if err != nil || !rec.isSelfOrParent() {
		return nil
	}
	su := rec.systemUse
	if len(su) >= 7 && su[0] == 'S' && su[1] == 'P' && su[4] == 0xBE && su[5] == 0xEF {
		img.rockRidge = true
		img.suspSkip = int(su[6])
	}
	return nil
}

// eachSUSP calls visit for every SUSP entry of rec, following CE
// continuation areas. CE and ST are consumed here. visit returns false to
// stop early.
func (img *Image) eachSUSP(rec record, visit func(sig string, entry []byte) bool) {
	if img.suspSkip > len(rec.systemUse) {
		return
	}
	area := rec.systemUse[img.suspSkip:]
	for hop := 0; hop <= maxContinuations && len(area) > 0; hop++ {
		var next []byte
		for len(area) >= 4 {
			sig := string(area[:2])
			length := int(area[2])
			if length < 4 || length > len(area) {
				break
			}
			entry := area[:length]
			area = area[length:]
			switch sig {
			case "CE":
				if length < 28 {
					continue
				}
				block := binary.LittleEndian.Uint32(entry[4:8])
				offset := binary.LittleEndian.Uint32(entry[12:16])
				size := binary.LittleEndian.Uint32(entry[20:24])
				data, err := img.readExtent(block, offset+size)
				if err == nil {
					next = data[offset:]
				}
			case "ST":
				area = nil
			default:
				if !visit(sig, entry) {
					return
				}
			}
		}
		area = next
	}
}

// rockRidgeName assembles the NM entries of a record. It returns false when
// the record carries no name or names "." / "..".
func (img *Image) rockRidgeName(rec record) (string, bool) {
	var name bytes.Buffer
	found, special := false, false
	img.eachSUSP(rec, func(sig string, entry []byte) bool {
		if sig != "NM" || len(entry) < 5 {
			return true
		}
		if entry[4]&0x06 != 0 {
			special = true
			return false
		}
		name.Write(entry[5:])
		found = true
		return true
	})
	if special || !found || name.Len() == 0 {
		return "", false
	}
	return name.String(), true
}

// relocate applies Rock Ridge directory relocation to the records of one
// directory extent. A record carrying CL stands in for a directory moved
// elsewhere (usually rr_moved) and is rewritten to point at it; a record
// carrying RE is that moved directory at its physical location and is
// dropped so it only shows up at its logical place.
func (img *Image) relocate(records []record) ([]record, error) {
	if img.source != NamesRockRidge {
		return records, nil
	}
	out := make([]record, 0, len(records))
	for _, rec := range records {
		if rec.isSelfOrParent() {
			out = append(out, rec)
			continue
		}
		var child uint32
		linked, moved := false, false
		img.eachSUSP(rec, func(sig string, entry []byte) bool {
			switch sig {
			case "CL":
				if len(entry) >= 8 {
					child = binary.LittleEndian.Uint32(entry[4:8])
					linked = true
				}
			case "RE":
				moved = true
			}
			return true
		})
		if moved {
			continue
		}
		if linked {
			size, err := img.directorySize(child)
			if err != nil {
				return nil, err
			}
			rec.extent = child
			rec.size = size
			rec.flags = (rec.flags | flagDirectory) &^ flagMultiExtent
		}
		out = append(out, rec)
	}
	return out, nil
}

// directorySize reads the "." record at the start of the directory extent
// at lba and returns the extent length it declares.
func (img *Image) directorySize(lba uint32) (uint32, error) {
	data, err := img.readExtent(lba, LogicalBlockSize)
	if err != nil {
		return 0, err
	}
	rec, _, err := parseRecord(data)
	if err != nil || !rec.isSelfOrParent() {
		return 0, fmt.Errorf("%w: relocated directory at block %d has no self record", ErrCorrupt, lba)
	}
	return rec.size, nil
}
