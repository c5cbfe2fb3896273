package tidisk

import (
	"fmt"
	"testing"

	"github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"
)

const (
	testVolumeName      = "TESTVOL"
	testTotalAUs        = 128
	testSectorsPerTrack = 32
	testHeads           = 2

	testRootFileIndexAU = 64
)

// testImage builds a synthetic volume in memory.
type testImage struct {
	sectorsPerAU int
	raw          []byte
	vib          VolumeInformationBlock
}

func testHardDiskParameters(sectorsPerAU, heads int) HardDiskParameters {
	return HardDiskParameters(uint16(sectorsPerAU-1)<<12 | uint16(heads-1)<<8)
}

func testName(name string) (raw [nameSize]byte) {
	copy(raw[:], fmt.Sprintf("%-10s", name))
	return raw
}

// newTestImage returns an image with a root directory that has an empty file
// index at AU 64. The header AUs and the file index are marked as allocated.
func newTestImage(sectorsPerAU int) *testImage {
	ti := &testImage{
		sectorsPerAU: sectorsPerAU,
		raw:          make([]byte, testTotalAUs*sectorsPerAU*SectorSize),
	}

	ti.vib = VolumeInformationBlock{
		Name:               testName(testVolumeName),
		TotalAUs:           testTotalAUs,
		SectorsPerTrack:    testSectorsPerTrack,
		HardDiskParameters: testHardDiskParameters(sectorsPerAU, testHeads),
		FileIndexAU:        testRootFileIndexAU,
	}

	copy(ti.vib.Magic[:], volumeMagic)

	for au := 0; au < reservedSectorCount/sectorsPerAU; au++ {
		ti.allocate(au)
	}

	ti.writeVolume()
	ti.writeFileIndex(testRootFileIndexAU, 0)

	return ti
}

func (ti *testImage) allocate(aus ...int) {
	for _, au := range aus {
		ti.raw[SectorSize+au/8] |= 0x80 >> uint(au%8)
	}
}

func (ti *testImage) writeSector(au, sectorOffset int, x interface{}) {
	encoded, err := restruct.Pack(defaultEncoding, x)
	log.PanicIf(err)

	if len(encoded) != SectorSize {
		log.Panicf("record not one sector: (%d)", len(encoded))
	}

	offset := (au*ti.sectorsPerAU + sectorOffset) * SectorSize
	copy(ti.raw[offset:], encoded)
}

func (ti *testImage) writeVolume() {
	ti.writeSector(0, 0, &ti.vib)
}

func (ti *testImage) setRootCounts(fileCount, subdirectoryCount int, subdirectoryAUs ...int) {
	ti.vib.FileCount = uint8(fileCount)
	ti.vib.SubdirectoryCount = uint8(subdirectoryCount)

	for i, au := range subdirectoryAUs {
		ti.vib.SubdirectoryAUs[i] = uint16(au)
	}

	ti.writeVolume()
}

func (ti *testImage) writeDirectory(au int, name string, parentAU, fileIndexAU, fileCount, subdirectoryCount int, subdirectoryAUs ...int) {
	ddr := DirectoryDescriptorRecord{
		Name:              testName(name),
		FileCount:         uint8(fileCount),
		SubdirectoryCount: uint8(subdirectoryCount),
		FileIndexAU:       uint16(fileIndexAU),
		ParentAU:          uint16(parentAU),
	}

	copy(ddr.Magic[:], directoryMagic)

	for i, subdirectoryAU := range subdirectoryAUs {
		ddr.SubdirectoryAUs[i] = uint16(subdirectoryAU)
	}

	ti.allocate(au)
	ti.writeSector(au, 0, &ddr)
}

func (ti *testImage) writeFileIndex(au, parentAU int, fileDescriptorAUs ...int) {
	fdir := FileDescriptorIndexRecord{
		ParentAU: uint16(parentAU),
	}

	for i, fileDescriptorAU := range fileDescriptorAUs {
		fdir.FileDescriptorAUs[i] = uint16(fileDescriptorAU)
	}

	ti.allocate(au)
	ti.writeSector(au, 0, &fdir)
}

// newTestFixedFile returns a DIS/FIX 80 descriptor with one sector of data in
// `dataAU`.
func newTestFixedFile(name string, fileIndexAU, dataAU int) FileDescriptorRecord {
	fdr := FileDescriptorRecord{
		Name:                testName(name),
		RecordsPerSector:    3,
		SectorsAllocated:    1,
		LogicalRecordLength: 80,
		Level3Records:       2,
		AllocatedAUs:        1,
		FileIndexAU:         uint16(fileIndexAU),
		CreatedAt:           Timestamp{TimeWord: 10<<11 | 30<<5 | 5, DateWord: 23<<9 | 6<<5 | 15},
	}

	copy(fdr.Magic[:], fileMagic)

	fdr.DataChain[0] = DataChainPointer{StartAU: uint16(dataAU), EndAU: uint16(dataAU)}

	return fdr
}

func (ti *testImage) writeFileDescriptor(au, sectorOffset int, fdr FileDescriptorRecord) {
	ti.allocate(au)
	ti.writeSector(au, sectorOffset, &fdr)
}

// fillAU fills every sector of the AU with bytes that identify the sector.
func (ti *testImage) fillAU(au int) {
	ti.allocate(au)

	for i := 0; i < ti.sectorsPerAU; i++ {
		offset := (au*ti.sectorsPerAU + i) * SectorSize
		for j := 0; j < SectorSize; j++ {
			ti.raw[offset+j] = byte(au + i + j)
		}
	}
}

func (ti *testImage) fillSectorWord(sector int, word uint16) {
	offset := sector * SectorSize
	for j := 0; j < SectorSize; j += 2 {
		ti.raw[offset+j] = byte(word >> 8)
		ti.raw[offset+j+1] = byte(word)
	}
}

func (ti *testImage) sectorOfAU(au, sectorOffset int) []byte {
	offset := (au*ti.sectorsPerAU + sectorOffset) * SectorSize
	return ti.raw[offset : offset+SectorSize]
}

func (ti *testImage) decode(t *testing.T) *Volume {
	v, err := Decode(ti.raw)
	if err != nil {
		log.PrintError(err)
		t.Fatalf("Decode failed.")
	}

	return v
}

// newTestSingleFileImage is the root directory holding one DIS/FIX file at AU
// 65 with its data in AU 66.
func newTestSingleFileImage() *testImage {
	ti := newTestImage(1)

	ti.setRootCounts(1, 0)
	ti.writeFileIndex(testRootFileIndexAU, 0, 65)
	ti.writeFileDescriptor(65, 0, newTestFixedFile("HELLO", testRootFileIndexAU, 66))
	ti.fillAU(66)

	return ti
}

func dumpDiagnostics(t *testing.T, v *Volume) {
	for _, d := range v.Diagnostics().All() {
		t.Logf("%s", d)
	}
}
