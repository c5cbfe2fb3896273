// This file supports enumerating the sectors of a decoded volume along with
// their owners, and the scans that are built on that.

package tidisk

import (
	"reflect"

	"encoding/binary"

	"github.com/dsoprea/go-logging"
)

var (
	// badDataPatterns are the words that formatters and controllers fill
	// unreadable sectors with.
	badDataPatterns = []uint16{0xe5e5, 0xdead, 0xd7a5}
)

// SectorVisitorFunc is a visitor callback that is called for each sector.
type SectorVisitorFunc func(sector int, role MapRole, owner Entity, data []byte) (doContinue bool, err error)

// EnumerateSectors calls the callback for every sector from `first` up to, but
// not including, `last`.
func (v *Volume) EnumerateSectors(first, last int, cb SectorVisitorFunc) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	if first < 0 || last > v.sectorMap.Len() || first > last {
		log.Panicf("sector range out of bounds: (%d)-(%d) of (%d)", first, last, v.sectorMap.Len())
	}

	for sector := first; sector < last; sector++ {
		doContinue, err := cb(sector, v.sectorMap.RoleAt(sector), v.sectorMap.OwnerAt(sector), v.Sector(sector))
		log.PanicIf(err)

		if doContinue == false {
			break
		}
	}

	return nil
}

// EnumerateAllSectors calls the callback for every sector of the volume.
func (v *Volume) EnumerateAllSectors(cb SectorVisitorFunc) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	err = v.EnumerateSectors(0, v.sectorMap.Len(), cb)
	log.PanicIf(err)

	return nil
}

// EnumerateSectorsOfAU calls the callback for every sector of one AU.
func (v *Volume) EnumerateSectorsOfAU(au int, cb SectorVisitorFunc) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	if v.geometry.IsValidAU(au) == false {
		log.Panicf("AU out of range: (%d)", au)
	}

	first := v.geometry.SectorOfAU(au, 0)

	err = v.EnumerateSectors(first, first+v.geometry.SectorsPerAU, cb)
	log.PanicIf(err)

	return nil
}

// SectorReport is one sector turned up by a scan.
type SectorReport struct {
	Address SectorAddress
	Role    MapRole
	Owner   Entity

	// FirstWord is the first big-endian word of the sector.
	FirstWord uint16

	Data []byte
}

func (v *Volume) newSectorReport(sector int, role MapRole, owner Entity, data []byte) SectorReport {
	return SectorReport{
		Address:   v.geometry.FromLogicalSector(sector),
		Role:      role,
		Owner:     owner,
		FirstWord: binary.BigEndian.Uint16(data[0:2]),
		Data:      data,
	}
}

// FindUnknownSectors returns every sector that the bitmap marks as allocated
// but that nothing in the tree claimed.
func (v *Volume) FindUnknownSectors() (reports []SectorReport, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	reports = make([]SectorReport, 0)

	cb := func(sector int, role MapRole, owner Entity, data []byte) (doContinue bool, err error) {
		if role == RoleUnknown {
			reports = append(reports, v.newSectorReport(sector, role, owner, data))
		}

		return true, nil
	}

	err = v.EnumerateAllSectors(cb)
	log.PanicIf(err)

	return reports, nil
}

// LooksLikeRecord indicates whether a sector has the shape of a directory or
// file-descriptor record: a clean ASCII name and either the directory magic,
// the file magic or an empty file magic.
func LooksLikeRecord(data []byte) bool {
	if len(data) < SectorSize {
		return false
	}

	if IsValidName(data[0:nameSize], true) == false {
		return false
	}

	if string(data[13:16]) == directoryMagic {
		return true
	} else if string(data[28:30]) == fileMagic {
		return true
	}

	return data[28] == 0 && data[29] == 0
}

// FindOrphanRecordCandidates returns the sectors outside of the tree that look
// like directory or file-descriptor records.
func (v *Volume) FindOrphanRecordCandidates() (reports []SectorReport, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	reports = make([]SectorReport, 0)

	cb := func(sector int, role MapRole, owner Entity, data []byte) (doContinue bool, err error) {
		if role == RoleFileDescriptor || role == RoleDirectory {
			return true, nil
		}

		if LooksLikeRecord(data) == true {
			reports = append(reports, v.newSectorReport(sector, role, owner, data))
		}

		return true, nil
	}

	err = v.EnumerateAllSectors(cb)
	log.PanicIf(err)

	return reports, nil
}

// HasBadDataPattern indicates whether every word of the sector is the given
// pattern.
func HasBadDataPattern(data []byte, pattern uint16) bool {
	for i := 0; i+1 < len(data); i += 2 {
		if binary.BigEndian.Uint16(data[i:i+2]) != pattern {
			return false
		}
	}

	return true
}

// FindPossibleBadSectors returns the in-use sectors that are entirely filled
// with one of the bad-data patterns.
func (v *Volume) FindPossibleBadSectors() (reports []SectorReport, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	reports = make([]SectorReport, 0)

	cb := func(sector int, role MapRole, owner Entity, data []byte) (doContinue bool, err error) {
		if role == RoleUnused || role == RoleFree {
			return true, nil
		}

		for _, pattern := range badDataPatterns {
			if HasBadDataPattern(data, pattern) == true {
				reports = append(reports, v.newSectorReport(sector, role, owner, data))
				break
			}
		}

		return true, nil
	}

	err = v.EnumerateAllSectors(cb)
	log.PanicIf(err)

	return reports, nil
}
