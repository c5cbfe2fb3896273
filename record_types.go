// This file describes the raw on-disk records.

package tidisk

import (
	"fmt"
	"reflect"

	"encoding/binary"

	"github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"
)

const (
	nameSize = 10

	subdirectorySlotCount  = 114
	fileIndexSlotCount     = 127
	dataChainSlotCount     = 54
	subdirectorySlotOffset = 28
	dataChainSlotOffset    = 40

	maximumFileCount         = 127
	maximumSubdirectoryCount = 114
)

var (
	defaultEncoding = binary.BigEndian

	volumeMagic    = "WIN"
	directoryMagic = "DIR"
	fileMagic      = "FI"
)

// HardDiskParameters is the packed geometry word of the volume information
// block. Bits are numbered from the most-significant end: bits 0-3 hold the
// sectors-per-AU minus one, bits 4-7 the heads minus one, bit 8 the buffered
// head-stepping flag and bits 9-15 the write-precompensation track / 16.
type HardDiskParameters uint16

// SectorsPerAU returns the number of sectors in one AU.
func (hdp HardDiskParameters) SectorsPerAU() int {
	return int(hdp>>12) + 1
}

// Heads returns the number of heads.
func (hdp HardDiskParameters) Heads() int {
	return int(hdp>>8)&0x0f + 1
}

// BufferedHeadStepping indicates whether buffered head stepping is used.
func (hdp HardDiskParameters) BufferedHeadStepping() bool {
	return hdp&0x80 > 0
}

// WritePrecompensation returns the write-precompensation track.
func (hdp HardDiskParameters) WritePrecompensation() int {
	return int(hdp&0x7f) * 16
}

func (hdp HardDiskParameters) String() string {
	return fmt.Sprintf("HardDiskParameters<SECTORS-PER-AU=(%d) HEADS=(%d) BUFFERED=[%v] PRECOMP=(%d)>", hdp.SectorsPerAU(), hdp.Heads(), hdp.BufferedHeadStepping(), hdp.WritePrecompensation())
}

// VolumeInformationBlock is sector 0. It doubles as the root directory
// record; the name, magic, timestamp, count and pointer fields line up with
// the directory record.
type VolumeInformationBlock struct {
	Name               [nameSize]byte
	TotalAUs           uint16
	SectorsPerTrack    uint8
	Magic              [3]byte
	HardDiskParameters HardDiskParameters
	CreatedAt          Timestamp
	FileCount          uint8
	SubdirectoryCount  uint8
	FileIndexAU        uint16
	Dsk1EmulationAU    uint16
	SubdirectoryAUs    [subdirectorySlotCount]uint16
}

// Dump prints the raw fields along with the derived geometry.
func (vib VolumeInformationBlock) Dump() {
	fmt.Printf("Volume Information Block\n")
	fmt.Printf("========================\n")
	fmt.Printf("\n")

	fmt.Printf("Name: [%s]\n", DisplayStringFromBytes(vib.Name[:]))
	fmt.Printf("TotalAUs: (%d)\n", vib.TotalAUs)
	fmt.Printf("SectorsPerTrack: (%d)\n", vib.SectorsPerTrack)
	fmt.Printf("Magic: [%s]\n", DisplayStringFromBytes(vib.Magic[:]))
	fmt.Printf("HardDiskParameters: (0x%04x)\n", uint16(vib.HardDiskParameters))
	fmt.Printf("-> Sectors-per-AU: (%d)\n", vib.HardDiskParameters.SectorsPerAU())
	fmt.Printf("-> Heads: (%d)\n", vib.HardDiskParameters.Heads())
	fmt.Printf("-> Buffered head-stepping: [%v]\n", vib.HardDiskParameters.BufferedHeadStepping())
	fmt.Printf("-> Write-precompensation: (%d)\n", vib.HardDiskParameters.WritePrecompensation())
	fmt.Printf("CreatedAt: [%s]\n", vib.CreatedAt)
	fmt.Printf("FileCount: (%d)\n", vib.FileCount)
	fmt.Printf("SubdirectoryCount: (%d)\n", vib.SubdirectoryCount)
	fmt.Printf("FileIndexAU: (%d)\n", vib.FileIndexAU)
	fmt.Printf("Dsk1EmulationAU: (%d)\n", vib.Dsk1EmulationAU)
	fmt.Printf("\n")
}

func (vib VolumeInformationBlock) String() string {
	return fmt.Sprintf("VolumeInformationBlock<NAME=[%s] AUS=(%d) SECTORS-PER-TRACK=(%d)>", nameFromBytes(vib.Name[:]), vib.TotalAUs, vib.SectorsPerTrack)
}

// DirectoryDescriptorRecord is the record of one subdirectory. Bytes 10-12
// and 16-17 are not used by directories (the volume uses them for geometry).
type DirectoryDescriptorRecord struct {
	Name              [nameSize]byte
	Reserved1         [3]byte
	Magic             [3]byte
	Reserved2         [2]byte
	CreatedAt         Timestamp
	FileCount         uint8
	SubdirectoryCount uint8
	FileIndexAU       uint16
	ParentAU          uint16
	SubdirectoryAUs   [subdirectorySlotCount]uint16
}

func (ddr DirectoryDescriptorRecord) String() string {
	return fmt.Sprintf("DirectoryDescriptorRecord<NAME=[%s] FILES=(%d) SUBDIRS=(%d) FDIR-AU=(%d) PARENT-AU=(%d)>", nameFromBytes(ddr.Name[:]), ddr.FileCount, ddr.SubdirectoryCount, ddr.FileIndexAU, ddr.ParentAU)
}

// FileDescriptorIndexRecord lists the file-descriptor AUs of one directory in
// alphabetical order. The last word points back to the directory.
type FileDescriptorIndexRecord struct {
	FileDescriptorAUs [fileIndexSlotCount]uint16
	ParentAU          uint16
}

// FileFlags is the status-flags byte of a file-descriptor record.
type FileFlags uint8

const (
	FileFlagProgram   FileFlags = 0x01
	FileFlagInternal  FileFlags = 0x02
	FileFlagProtected FileFlags = 0x08
	FileFlagModified  FileFlags = 0x10
	FileFlagDsk1Emu   FileFlags = 0x20
	FileFlagVariable  FileFlags = 0x80
)

// IsVariable indicates VARIABLE (rather than FIXED) records.
func (ff FileFlags) IsVariable() bool {
	return ff&FileFlagVariable > 0
}

// IsDsk1Emulation indicates a DSK1 emulation file.
func (ff FileFlags) IsDsk1Emulation() bool {
	return ff&FileFlagDsk1Emu > 0
}

// IsModifiedSinceBackup indicates that the file needs to be backed-up.
func (ff FileFlags) IsModifiedSinceBackup() bool {
	return ff&FileFlagModified > 0
}

// IsProtected indicates a write-protected file.
func (ff FileFlags) IsProtected() bool {
	return ff&FileFlagProtected > 0
}

// IsInternal indicates INTERNAL (binary) rather than DISPLAY (ASCII) data.
func (ff FileFlags) IsInternal() bool {
	return ff&FileFlagInternal > 0
}

// IsProgram indicates a program image rather than a data file.
func (ff FileFlags) IsProgram() bool {
	return ff&FileFlagProgram > 0
}

func (ff FileFlags) String() string {
	return fmt.Sprintf("FileFlags<IS-VARIABLE=[%v] IS-DSK1EMU=[%v] IS-MODIFIED=[%v] IS-PROTECTED=[%v] IS-INTERNAL=[%v] IS-PROGRAM=[%v]>",
		ff.IsVariable(), ff.IsDsk1Emulation(), ff.IsModifiedSinceBackup(), ff.IsProtected(), ff.IsInternal(), ff.IsProgram())
}

// DumpBareIndented prints the flags with arbitrary indentation.
func (ff FileFlags) DumpBareIndented(indent string) {
	fmt.Printf("%sRaw Value: (%08b)\n", indent, uint8(ff))
	fmt.Printf("%sIsVariable: [%v]\n", indent, ff.IsVariable())
	fmt.Printf("%sIsDsk1Emulation: [%v]\n", indent, ff.IsDsk1Emulation())
	fmt.Printf("%sIsModifiedSinceBackup: [%v]\n", indent, ff.IsModifiedSinceBackup())
	fmt.Printf("%sIsProtected: [%v]\n", indent, ff.IsProtected())
	fmt.Printf("%sIsInternal: [%v]\n", indent, ff.IsInternal())
	fmt.Printf("%sIsProgram: [%v]\n", indent, ff.IsProgram())
}

// ExtendedInfo is split into four nibbles, most-significant first: the high
// nibble of the allocated-sector count, the high nibble of the level-3 record
// count (VARIABLE files only), the sector-offset of the previous descriptor
// and the sector-offset of the next descriptor.
type ExtendedInfo uint16

func (ei ExtendedInfo) SectorsAllocatedHigh() int {
	return int(ei>>12) & 0x0f
}

func (ei ExtendedInfo) Level3RecordsHigh() int {
	return int(ei>>8) & 0x0f
}

func (ei ExtendedInfo) PreviousSectorOffset() int {
	return int(ei>>4) & 0x0f
}

func (ei ExtendedInfo) NextSectorOffset() int {
	return int(ei) & 0x0f
}

// DataChainPointer is one contiguous, inclusive range of data AUs.
type DataChainPointer struct {
	StartAU uint16
	EndAU   uint16
}

// IsTerminator indicates the end-of-list marker.
func (dcp DataChainPointer) IsTerminator() bool {
	return dcp.StartAU == 0 && dcp.EndAU == 0
}

// IsMalformed indicates a pair that can never describe a range.
func (dcp DataChainPointer) IsMalformed() bool {
	return dcp.EndAU < dcp.StartAU || (dcp.StartAU == 0 && dcp.EndAU != 0)
}

// FileDescriptorRecord is the record of one file (or one link of a file's
// chain of records).
type FileDescriptorRecord struct {
	Name                 [nameSize]byte
	ExtendedRecordLength uint16
	Flags                FileFlags
	RecordsPerSector     uint8
	SectorsAllocated     uint16
	EofOffset            uint8
	LogicalRecordLength  uint8

	// Level3Records is the only little-endian field in any record.
	Level3Records uint16 `struct:"little"`

	CreatedAt    Timestamp
	ModifiedAt   Timestamp
	Magic        [2]byte
	PreviousAU   uint16
	NextAU       uint16
	AllocatedAUs uint16
	FileIndexAU  uint16
	ExtendedInfo ExtendedInfo
	DataChain    [dataChainSlotCount]DataChainPointer
}

func (fdr FileDescriptorRecord) String() string {
	return fmt.Sprintf("FileDescriptorRecord<NAME=[%s] FLAGS=(0x%02x) SECTORS=(%d) PREV-AU=(%d) NEXT-AU=(%d) FDIR-AU=(%d)>", nameFromBytes(fdr.Name[:]), uint8(fdr.Flags), fdr.SectorsAllocated, fdr.PreviousAU, fdr.NextAU, fdr.FileIndexAU)
}

// HasValidMagic indicates whether the magic is "FI" or zeros.
func (fdr FileDescriptorRecord) HasValidMagic() bool {
	return string(fdr.Magic[:]) == fileMagic || (fdr.Magic[0] == 0 && fdr.Magic[1] == 0)
}

// unpackRecord decodes one sector into a record struct.
func unpackRecord(raw []byte, x interface{}) (err error) {
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

	if len(raw) < SectorSize {
		log.Panicf("record too short: (%d) < (%d)", len(raw), SectorSize)
	}

	err = restruct.Unpack(raw[:SectorSize], defaultEncoding, x)
	log.PanicIf(err)

	return nil
}
