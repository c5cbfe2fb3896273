package tidisk

import (
	"fmt"
	"strings"

	"github.com/dsoprea/go-logging"
)

var (
	fileDescriptorLogger = log.NewLogger("tidisk.file_descriptor")
)

type chainNode struct {
	au           int
	sectorOffset int
}

// chainVisit is the set of descriptor records already seen in one chain.
type chainVisit map[chainNode]struct{}

func newChainVisit() chainVisit {
	return make(chainVisit)
}

func (cv chainVisit) add(au, sectorOffset int) {
	cv[chainNode{au: au, sectorOffset: sectorOffset}] = struct{}{}
}

func (cv chainVisit) has(au, sectorOffset int) bool {
	_, found := cv[chainNode{au: au, sectorOffset: sectorOffset}]
	return found
}

// FileDescriptor is one record in a file's chain of descriptor records. The
// first node (the head) is the file as listed by the file index. A node owns
// the next node; the previous node is a back-reference only.
type FileDescriptor struct {
	entityBase

	raw          []byte
	record       FileDescriptorRecord
	sectorOffset int

	fileIndex *FileIndex
	previous  *FileDescriptor
	next      *FileDescriptor

	name             string
	recordLength     int
	sectorsAllocated int
	level3Records    int
	programLength    int

	extents []AllocationUnitRange
}

func newFileDescriptor(g Geometry, au, sectorOffset int, fi *FileIndex) *FileDescriptor {
	fd := &FileDescriptor{
		entityBase:   newEntityBase(g, au, KindFileDescriptor, RoleFileDescriptor),
		sectorOffset: sectorOffset,
		fileIndex:    fi,
		extents:      make([]AllocationUnitRange, 0),
	}

	fd.address = g.FromLogicalSector(g.SectorOfAU(au, sectorOffset))

	return fd
}

// parseFileDescriptor decodes one node and then the rest of the chain after
// it. `previousAU` and `previousSectorOffset` are where the caller found the
// previous node (zeros for the head).
func (d *decoder) parseFileDescriptor(fd *FileDescriptor, previous *FileDescriptor, previousAU, previousSectorOffset int, chain chainVisit) {
	d.diagnostics.register(fd)

	fileDescriptorLogger.Debugf(nil, "Parsing file descriptor at AU (%d) sector (%d).", fd.au, fd.sectorOffset)

	fd.previous = previous

	if fd.sectorOffset > 0 {
		d.sectorMap.ClaimSector(fd.au, fd.sectorOffset, fd.role, fd)
	} else {
		d.sectorMap.ClaimEntityAU(fd)
	}

	raw := d.sectorOfAU(fd.au, fd.sectorOffset)

	err := unpackRecord(raw, &fd.record)
	if err != nil {
		d.errorf(fd, "%s AU %d invalid record: %s", fd.kind, fd.au, err.Error())
		return
	}

	fd.raw = raw

	fdr := &fd.record
	g := d.geometry

	if fdr.HasValidMagic() == false {
		d.warningf(fd, "invalid magic: %s", DisplayStringFromBytes(fdr.Magic[:]))
	}

	d.checkBitmap(fd)

	if fd.sectorOffset > 0 && previousAU == 0 {
		d.errorf(fd, "has prevFDRAU=%d with non-zero sectorOffset=%d", previousAU, fd.sectorOffset)
	}

	fd.name = nameFromBytes(fdr.Name[:])
	if IsValidName(fdr.Name[:], false) == false {
		d.errorf(fd, "invalid name: %s", fd.name)
	}

	fd.fullPath = fd.fileIndex.directory.fullPath + "." + fd.name

	flags := fdr.Flags

	fd.recordLength = int(fdr.LogicalRecordLength)
	if (flags.IsProgram() == false || flags.IsDsk1Emulation() == true) && fdr.LogicalRecordLength == 0 {
		fd.recordLength = int(fdr.ExtendedRecordLength)
	}

	fd.sectorsAllocated = int(fdr.SectorsAllocated)
	fd.level3Records = int(fdr.Level3Records)

	if int(fdr.PreviousAU) != previousAU {
		d.errorf(fd, "previous FDR AU mismatch: %d/%d", fdr.PreviousAU, previousAU)
	}

	if g.IsValidAU(int(fdr.NextAU)) == false {
		d.errorf(fd, "invalid next FDR AU: %d", fdr.NextAU)
	}

	if int(fdr.FileIndexAU) != fd.fileIndex.au {
		d.errorf(fd, "FDIR AU mismatch: %d/%d", fdr.FileIndexAU, fd.fileIndex.au)
	}

	ei := fdr.ExtendedInfo

	fd.sectorsAllocated += ei.SectorsAllocatedHigh() * 65536
	if flags.IsVariable() == true {
		fd.level3Records += ei.Level3RecordsHigh() * 65536
	}

	if ei.PreviousSectorOffset() != previousSectorOffset {
		d.errorf(fd, "previous FDR AU sector offset mismatch: %d/%d", ei.PreviousSectorOffset(), previousSectorOffset)
	}

	if g.IsValidSectorOfAU(int(fdr.PreviousAU), ei.PreviousSectorOffset()) == false {
		d.errorf(fd, "previous FDR AU sector offset invalid: AU=%d sector=%d", fdr.PreviousAU, ei.PreviousSectorOffset())
	}

	if flags.IsProgram() == true {
		if fdr.EofOffset > 0 {
			fd.programLength = (fd.sectorsAllocated-1)*SectorSize + int(fdr.EofOffset)
		} else {
			fd.programLength = fd.sectorsAllocated * SectorSize
		}
	}

	d.parseDataChain(fd)

	d.checkRecordGeometry(fd)

	nextAU := int(fdr.NextAU)
	nextSectorOffset := ei.NextSectorOffset()

	if nextAU != 0 {
		if g.IsValidSectorOfAU(nextAU, nextSectorOffset) == false {
			d.errorf(fd, "next FDR AU sector offset invalid: AU=%d sector=%d", nextAU, nextSectorOffset)
		} else if chain.has(nextAU, nextSectorOffset) == true {
			d.errorf(fd, "next FDR AU refers back into its own chain: AU=%d sector=%d", nextAU, nextSectorOffset)
		} else {
			chain.add(nextAU, nextSectorOffset)

			next := newFileDescriptor(g, nextAU, nextSectorOffset, fd.fileIndex)
			d.parseFileDescriptor(next, fd, fd.au, fd.sectorOffset, chain)

			fd.next = next
		}
	}

	if sectorsInUse := fd.SectorsInUse(); sectorsInUse > fd.sectorsAllocated {
		d.warningf(fd, "sectors in use %d > sectors allocated %d", sectorsInUse, fd.sectorsAllocated)
	}
}

// parseDataChain walks the extent pairs. The pairs of a node whose own fields
// are already inconsistent are not claimed.
func (d *decoder) parseDataChain(fd *FileDescriptor) {
	allocatedAUs := 0

	sawZero := false
	for i, dcp := range fd.record.DataChain {
		offset := dataChainSlotOffset + i*4

		start := int(dcp.StartAU)
		end := int(dcp.EndAU)

		if dcp.IsMalformed() == true {
			d.errorf(fd, "data chain at byte %d: invalid: start=%d, end=%d", offset, start, end)
		} else if dcp.IsTerminator() == true {
			sawZero = true
		} else if sawZero == true {
			d.warningf(fd, "ignored non-zero data chain AU after zero at byte %d: [%d,%d]", offset, start, end)
		} else if fd.HasErrors() == false {
			aur := newAllocationUnitRange(d.geometry, start, end)
			if aur.IsValid() == false {
				d.errorf(fd, "invalid data chain at byte %d: [%d,%d]", offset, start, end)
				continue
			}

			fd.extents = append(fd.extents, aur)

			for au := start; au <= end; au++ {
				d.sectorMap.ClaimAU(au, RoleDataExtent, fd)

				if d.bitmap.Test(au) == false {
					d.warningf(fd, "data chain AU %d marked as free in volume bitmap", au)
				}
			}

			allocatedAUs += aur.AuCount()
		}
	}

	if allocatedAUs != int(fd.record.AllocatedAUs) {
		d.errorf(fd, "allocated AU mismatch: %d/%d", allocatedAUs, fd.record.AllocatedAUs)
	}
}

// checkRecordGeometry checks the record fields against the file type.
func (d *decoder) checkRecordGeometry(fd *FileDescriptor) {
	fdr := &fd.record

	if fdr.Flags.IsProgram() == true {
		if fdr.LogicalRecordLength != 0 {
			d.warningf(fd, "logical record length is %d, expected 0 for PROGRAM type", fdr.LogicalRecordLength)
		}

		if fdr.RecordsPerSector != 0 {
			d.warningf(fd, "records per sector is %d, expected 0 for PROGRAM type", fdr.RecordsPerSector)
		}

		if fd.level3Records != 0 {
			d.warningf(fd, "number of level 3 records is %d, expected 0 for PROGRAM type", fd.level3Records)
		}

		return
	}

	if fdr.LogicalRecordLength == 0 {
		d.errorf(fd, "logical record length is 0, expected non-zero for non-PROGRAM type")
	}

	if fdr.Flags.IsVariable() == true {
		// For VARIABLE files the level-3 count is the number of sectors
		// written.
		if fd.level3Records > fd.sectorsAllocated {
			d.errorf(fd, "number of sectors with data (L3 records) %d > total allocated sectors %d", fd.level3Records, fd.sectorsAllocated)
		}
	} else if fdr.RecordsPerSector == 0 {
		d.errorf(fd, "records per sector is 0, expected non-zero for FIXED type")
	} else if maximumRecords := int(fdr.RecordsPerSector) * fd.sectorsAllocated; fd.level3Records > maximumRecords {
		d.errorf(fd, "L3 records is %d but max allocated records is %d", fd.level3Records, maximumRecords)
	}
}

// Name returns the file name.
func (fd *FileDescriptor) Name() string {
	return fd.name
}

// Record returns the raw descriptor record.
func (fd *FileDescriptor) Record() FileDescriptorRecord {
	return fd.record
}

// Raw returns the raw sector that the record was decoded from.
func (fd *FileDescriptor) Raw() []byte {
	return fd.raw
}

// SectorOffset is the sector within the AU that holds this record.
func (fd *FileDescriptor) SectorOffset() int {
	return fd.sectorOffset
}

// FileIndex returns the file index that listed the file.
func (fd *FileDescriptor) FileIndex() *FileIndex {
	return fd.fileIndex
}

// Directory returns the directory that holds the file.
func (fd *FileDescriptor) Directory() *Directory {
	return fd.fileIndex.directory
}

// Previous returns the previous node in the chain, or nil for the head.
func (fd *FileDescriptor) Previous() *FileDescriptor {
	return fd.previous
}

// Next returns the next node in the chain, or nil for the last one.
func (fd *FileDescriptor) Next() *FileDescriptor {
	return fd.next
}

// Head returns the first node of the chain.
func (fd *FileDescriptor) Head() *FileDescriptor {
	head := fd
	for head.previous != nil {
		head = head.previous
	}

	return head
}

// Flags returns the status flags.
func (fd *FileDescriptor) Flags() FileFlags {
	return fd.record.Flags
}

func (fd *FileDescriptor) RecordsPerSector() int {
	return int(fd.record.RecordsPerSector)
}

// SectorsAllocated includes the high nibble from the extended info.
func (fd *FileDescriptor) SectorsAllocated() int {
	return fd.sectorsAllocated
}

func (fd *FileDescriptor) EofOffset() int {
	return int(fd.record.EofOffset)
}

func (fd *FileDescriptor) LogicalRecordLength() int {
	return int(fd.record.LogicalRecordLength)
}

// RecordLength is the logical record length, or the extended record length
// where the logical one is zero and the file is not a plain program.
func (fd *FileDescriptor) RecordLength() int {
	return fd.recordLength
}

// Level3Records includes the high nibble from the extended info for VARIABLE
// files.
func (fd *FileDescriptor) Level3Records() int {
	return fd.level3Records
}

func (fd *FileDescriptor) CreatedAt() Timestamp {
	return fd.record.CreatedAt
}

func (fd *FileDescriptor) ModifiedAt() Timestamp {
	return fd.record.ModifiedAt
}

// PreviousAU is the previous-node pointer as recorded.
func (fd *FileDescriptor) PreviousAU() int {
	return int(fd.record.PreviousAU)
}

// NextAU is the next-node pointer as recorded.
func (fd *FileDescriptor) NextAU() int {
	return int(fd.record.NextAU)
}

// AllocatedAUs is the declared number of data AUs in this node's extents.
func (fd *FileDescriptor) AllocatedAUs() int {
	return int(fd.record.AllocatedAUs)
}

// FileIndexAU is the file-index pointer as recorded.
func (fd *FileDescriptor) FileIndexAU() int {
	return int(fd.record.FileIndexAU)
}

// ExtendedInfo returns the nibble-packed extended info word.
func (fd *FileDescriptor) ExtendedInfo() ExtendedInfo {
	return fd.record.ExtendedInfo
}

// Extents returns the valid data extents of this node in on-disk order.
func (fd *FileDescriptor) Extents() []AllocationUnitRange {
	return fd.extents
}

// ProgramLength is the length in bytes of a program file. It is zero for
// anything else.
func (fd *FileDescriptor) ProgramLength() int {
	return fd.programLength
}

// AllocatedSize is the size in bytes of every sector allocated to the file.
func (fd *FileDescriptor) AllocatedSize() int {
	return fd.Head().sectorsAllocated * SectorSize
}

// SectorsInUse is the number of sectors that actually hold data, derived from
// the head's fields according to the file type.
func (fd *FileDescriptor) SectorsInUse() int {
	head := fd.Head()
	flags := head.record.Flags

	if flags.IsProgram() == true {
		return ceilDivide(head.programLength, SectorSize)
	} else if flags.IsVariable() == true {
		return head.level3Records
	}

	recordLength := head.recordLength
	if recordLength <= SectorSize {
		if recordLength == 0 {
			recordLength = SectorSize
		}

		return ceilDivide(head.level3Records, SectorSize/recordLength)
	}

	return head.level3Records * ceilDivide(recordLength, SectorSize)
}

func ceilDivide(n, d int) int {
	return (n + d - 1) / d
}

// ContainsDataInAU indicates whether the AU is in one of the extents of the
// chain, up to the last sector in use.
func (fd *FileDescriptor) ContainsDataInAU(au int) bool {
	head := fd.Head()
	lastRelativeSector := head.SectorsInUse() - 1

	relativeSector := 0
	for node := head; node != nil && relativeSector <= lastRelativeSector; node = node.next {
		for _, aur := range node.extents {
			if aur.ContainsAU(au) == true {
				return true
			}

			relativeSector += aur.SectorCount()
		}
	}

	return false
}

// TypeName returns the short type-name of the file.
func (fd *FileDescriptor) TypeName() string {
	flags := fd.record.Flags

	if flags.IsDsk1Emulation() == true {
		return "DSK1EMU"
	} else if flags.IsProgram() == true {
		return "PROGRAM"
	} else if flags.IsInternal() == true {
		if flags.IsVariable() == true {
			return "INT/VAR"
		}

		return "INT/FIX"
	} else if flags.IsVariable() == true {
		return "DIS/VAR"
	}

	return "DIS/FIX"
}

// FileType returns the type-name followed by the program length or record
// length.
func (fd *FileDescriptor) FileType() string {
	flags := fd.record.Flags

	size := fd.recordLength
	if flags.IsDsk1Emulation() == true || flags.IsProgram() == true {
		size = fd.programLength
	}

	return fmt.Sprintf("%s %8d", fd.TypeName(), size)
}

// ListingFlags returns the protected and needs-backup markers used in
// directory listings.
func (fd *FileDescriptor) ListingFlags() string {
	protected := " "
	if fd.record.Flags.IsProtected() == true {
		protected = "P"
	}

	backup := " "
	if fd.record.Flags.IsModifiedSinceBackup() == true {
		backup = "B"
	}

	return protected + backup
}

func (fd *FileDescriptor) extentsString() string {
	parts := make([]string, len(fd.extents))
	for i, aur := range fd.extents {
		parts[i] = aur.String()
	}

	return strings.Join(parts, " ")
}

func (fd *FileDescriptor) dumpIndented(indent string) {
	fmt.Printf("%sFile at AU (%d):\n", indent, fd.au)

	dumpMessages(fd, indent+"  ")

	fmt.Printf("%s  Name: [%s]\n", indent, fd.name)
	fmt.Printf("%s  Full path: [%s]\n", indent, fd.fullPath)
	fmt.Printf("%s  Type: [%s]\n", indent, fd.FileType())
	fmt.Printf("%s  Flags:\n", indent)
	fd.record.Flags.DumpBareIndented(indent + "    ")
	fmt.Printf("%s  Records/sector: (%d)\n", indent, fd.RecordsPerSector())
	fmt.Printf("%s  Sectors allocated: (%d)\n", indent, fd.sectorsAllocated)
	fmt.Printf("%s  EOF offset: (%d)\n", indent, fd.EofOffset())
	fmt.Printf("%s  L3 records: (%d)\n", indent, fd.level3Records)
	fmt.Printf("%s  Created: [%s]\n", indent, fd.CreatedAt())
	fmt.Printf("%s  Modified: [%s]\n", indent, fd.ModifiedAt())
	fmt.Printf("%s  Previous FDR AU: (%d) (%d)\n", indent, fd.PreviousAU(), fd.record.ExtendedInfo.PreviousSectorOffset())
	fmt.Printf("%s  Next FDR AU: (%d) (%d)\n", indent, fd.NextAU(), fd.record.ExtendedInfo.NextSectorOffset())
	fmt.Printf("%s  Allocated AUs: (%d)\n", indent, fd.AllocatedAUs())
	fmt.Printf("%s  FDIR AU: (%d)\n", indent, fd.FileIndexAU())
	fmt.Printf("%s  Extended info: (0x%04x)\n", indent, uint16(fd.record.ExtendedInfo))
	fmt.Printf("%s  Data chain: [%s]\n", indent, fd.extentsString())

	if fd.next != nil {
		fd.next.dumpIndented(indent + "  ")
	}
}

// Dump prints this node and the rest of the chain.
func (fd *FileDescriptor) Dump() {
	fd.dumpIndented("")
}

func (fd *FileDescriptor) String() string {
	return fmt.Sprintf("FileDescriptor<AU=(%d) SECTOR=(%d) PATH=[%s] TYPE=[%s]>", fd.au, fd.sectorOffset, fd.fullPath, fd.TypeName())
}
