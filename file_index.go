package tidisk

import (
	"fmt"

	"github.com/dsoprea/go-logging"
)

var (
	fileIndexLogger = log.NewLogger("tidisk.file_index")
)

// FileIndex is the sorted list of file-descriptor pointers of one directory.
// It owns the head descriptor of every file that it lists.
type FileIndex struct {
	entityBase

	record    FileDescriptorIndexRecord
	directory *Directory

	fileDescriptorAUs []int
	files             []*FileDescriptor
}

func newFileIndex(g Geometry, au int, directory *Directory) *FileIndex {
	fi := &FileIndex{
		entityBase:        newEntityBase(g, au, KindFileIndex, RoleFileIndex),
		directory:         directory,
		fileDescriptorAUs: make([]int, 0),
		files:             make([]*FileDescriptor, 0),
	}

	fi.fullPath = directory.fullPath

	return fi
}

func (d *decoder) parseFileIndex(fi *FileIndex, raw []byte) {
	d.diagnostics.register(fi)

	fileIndexLogger.Debugf(nil, "Parsing file index at AU (%d) for [%s].", fi.au, fi.fullPath)

	err := unpackRecord(raw, &fi.record)
	if err != nil {
		d.errorf(fi, "%s AU %d invalid record: %s", fi.kind, fi.au, err.Error())
		return
	}

	d.checkBitmap(fi)

	dir := fi.directory

	if int(fi.record.ParentAU) != dir.au {
		d.errorf(fi, "parent DDR mismatch: DDR=%d parentAU=%d", fi.record.ParentAU, dir.au)
	}

	sawZero := false
	for i, slot := range fi.record.FileDescriptorAUs {
		fileDescriptorAU := int(slot)
		offset := i * 2

		if fileDescriptorAU == 0 {
			sawZero = true
		} else if sawZero == true {
			d.warningf(fi, "ignored non-zero FDR AU after zero at byte %d: %d", offset, fileDescriptorAU)
		} else if d.geometry.IsValidAU(fileDescriptorAU) == true {
			head := newFileDescriptor(d.geometry, fileDescriptorAU, 0, fi)

			chain := newChainVisit()
			chain.add(fileDescriptorAU, 0)

			d.parseFileDescriptor(head, nil, 0, 0, chain)

			fi.fileDescriptorAUs = append(fi.fileDescriptorAUs, fileDescriptorAU)
			fi.files = append(fi.files, head)
		} else {
			d.errorf(fi, "invalid FDR AU at byte %d: %d", offset, fileDescriptorAU)
		}
	}

	if dir.FileCount() != len(fi.files) {
		d.errorf(fi, "DDR/FDIR file count mismatch: DDR=%d FDIR=%d", dir.FileCount(), len(fi.files))
	}

	d.sectorMap.ClaimEntityAU(fi)
}

// Directory returns the directory that the index belongs to.
func (fi *FileIndex) Directory() *Directory {
	return fi.directory
}

// ParentAU is the directory pointer as recorded.
func (fi *FileIndex) ParentAU() int {
	return int(fi.record.ParentAU)
}

// FileCount is the number of files that were parsed.
func (fi *FileIndex) FileCount() int {
	return len(fi.files)
}

// FileDescriptorAUs returns the AUs of the parsed files in index order.
func (fi *FileIndex) FileDescriptorAUs() []int {
	return fi.fileDescriptorAUs
}

// Files returns the head descriptor of every parsed file in index order.
func (fi *FileIndex) Files() []*FileDescriptor {
	return fi.files
}

func (fi *FileIndex) dumpIndented(indent string, includeFiles bool) {
	fmt.Printf("%sFDIR at AU (%d):\n", indent, fi.au)

	dumpMessages(fi, indent+"  ")

	fmt.Printf("%s  Files: (%d)\n", indent, fi.FileCount())
	fmt.Printf("%s  FDR AUs: %v\n", indent, fi.fileDescriptorAUs)

	if includeFiles == true {
		for _, fd := range fi.files {
			fd.dumpIndented(indent + "  ")
		}
	}
}

// Dump prints the index and its files.
func (fi *FileIndex) Dump() {
	fi.dumpIndented("", true)
}

func (fi *FileIndex) String() string {
	return fmt.Sprintf("FileIndex<AU=(%d) PATH=[%s] FILES=(%d)>", fi.au, fi.fullPath, fi.FileCount())
}
