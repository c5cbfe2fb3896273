package tidisk

import (
	"fmt"

	"github.com/dsoprea/go-logging"
)

var (
	directoryLogger = log.NewLogger("tidisk.directory")
)

// directoryVariant carries the differences between the root (the volume
// information block read as a directory) and an ordinary subdirectory.
type directoryVariant struct {
	kind  EntityKind
	role  MapRole
	magic string

	// hasParentPointer is false for the root, which keeps the DSK1 emulation
	// pointer where subdirectories keep their parent pointer.
	hasParentPointer bool
}

var (
	rootDirectoryVariant = directoryVariant{
		kind:             KindVolume,
		role:             RoleVolume,
		magic:            volumeMagic,
		hasParentPointer: false,
	}

	subdirectoryVariant = directoryVariant{
		kind:             KindDirectory,
		role:             RoleDirectory,
		magic:            directoryMagic,
		hasParentPointer: true,
	}
)

// Directory is one directory. The root directory is the volume information
// block. A directory owns its file index and its subdirectories; the parent is
// a back-reference only.
type Directory struct {
	entityBase

	variant directoryVariant
	record  DirectoryDescriptorRecord

	name   string
	parent *Directory

	fileIndex       *FileIndex
	subdirectoryAUs []int
	subdirectories  []*Directory
}

func newRootDirectory(g Geometry) *Directory {
	return newDirectoryWithVariant(g, 0, rootDirectoryVariant)
}

func newSubdirectory(g Geometry, au int) *Directory {
	return newDirectoryWithVariant(g, au, subdirectoryVariant)
}

func newDirectoryWithVariant(g Geometry, au int, variant directoryVariant) *Directory {
	return &Directory{
		entityBase:      newEntityBase(g, au, variant.kind, variant.role),
		variant:         variant,
		subdirectoryAUs: make([]int, 0),
		subdirectories:  make([]*Directory, 0),
	}
}

// parseDirectory decodes one directory record and everything beneath it.
// `ancestors` holds the AUs of every directory above this one.
func (d *decoder) parseDirectory(dir *Directory, parent *Directory, raw []byte, ancestors []int) {
	d.diagnostics.register(dir)
	d.parsedDirectories[dir.au] = struct{}{}

	directoryLogger.Debugf(nil, "Parsing directory at AU (%d).", dir.au)

	dir.parent = parent

	err := unpackRecord(raw, &dir.record)
	if err != nil {
		d.errorf(dir, "%s AU %d invalid record: %s", dir.kind, dir.au, err.Error())
		return
	}

	ddr := &dir.record

	if string(ddr.Magic[:]) != dir.variant.magic {
		d.warningf(dir, "invalid magic: %s", DisplayStringFromBytes(ddr.Magic[:]))
	}

	d.checkBitmap(dir)

	dir.name = nameFromBytes(ddr.Name[:])
	if IsValidName(ddr.Name[:], false) == false {
		d.errorf(dir, "invalid name: %s", dir.name)
	}

	if parent == nil {
		dir.fullPath = dir.name
	} else {
		dir.fullPath = parent.fullPath + "." + dir.name
	}

	if ddr.FileCount > maximumFileCount {
		d.errorf(dir, "too many files: %d", ddr.FileCount)
	}

	if ddr.SubdirectoryCount > maximumSubdirectoryCount {
		d.errorf(dir, "too many subdirectories: %d", ddr.SubdirectoryCount)
	}

	fileIndexAU := int(ddr.FileIndexAU)
	if fileIndexAU == 0 || d.geometry.IsValidAU(fileIndexAU) == false {
		d.errorf(dir, "invalid file index AU: %d", fileIndexAU)
	} else {
		fi := newFileIndex(d.geometry, fileIndexAU, dir)
		d.parseFileIndex(fi, d.sectorOfAU(fileIndexAU, 0))

		dir.fileIndex = fi

		if int(ddr.FileCount) != fi.FileCount() {
			d.errorf(dir, "file count mismatch with FDIR: %d/%d", ddr.FileCount, fi.FileCount())
		}
	}

	if dir.variant.hasParentPointer == true {
		parentAU := int(ddr.ParentAU)
		if d.geometry.IsValidAU(parentAU) == false {
			d.warningf(dir, "invalid parent DDR AU: %d", parentAU)
		} else if parent != nil && parentAU != parent.au {
			d.warningf(dir, "parent DDR mismatch: %d/%d", parentAU, parent.au)
		}
	}

	// Force a copy so that siblings never share the backing array.
	ancestors = append(ancestors[:len(ancestors):len(ancestors)], dir.au)

	sawZero := false
	for i, slot := range ddr.SubdirectoryAUs {
		subdirectoryAU := int(slot)
		offset := subdirectorySlotOffset + i*2

		if subdirectoryAU == 0 {
			sawZero = true
			continue
		} else if sawZero == true {
			d.warningf(dir, "ignored non-zero subdir AU after zero at byte %d: %d", offset, subdirectoryAU)
			continue
		}

		dir.subdirectoryAUs = append(dir.subdirectoryAUs, subdirectoryAU)

		if d.geometry.IsValidAU(subdirectoryAU) == false {
			d.errorf(dir, "invalid subdir AU at byte %d: %d", offset, subdirectoryAU)
			continue
		}

		if containsInt(ancestors, subdirectoryAU) == true {
			d.errorf(dir, "subdir AU at byte %d refers back to an ancestor: %d", offset, subdirectoryAU)
			continue
		}

		if _, found := d.parsedDirectories[subdirectoryAU]; found == true {
			d.errorf(dir, "subdir AU at byte %d already parsed: %d", offset, subdirectoryAU)
			continue
		}

		child := newSubdirectory(d.geometry, subdirectoryAU)
		d.parseDirectory(child, dir, d.sectorOfAU(subdirectoryAU, 0), ancestors)

		dir.subdirectories = append(dir.subdirectories, child)
	}

	if int(ddr.SubdirectoryCount) != len(dir.subdirectories) {
		d.errorf(dir, "subdir count mismatch: %d/%d", ddr.SubdirectoryCount, len(dir.subdirectories))
	}

	d.sectorMap.ClaimEntityAU(dir)
}

func containsInt(list []int, value int) bool {
	for _, x := range list {
		if x == value {
			return true
		}
	}

	return false
}

// IsRoot indicates the root directory (the volume information block).
func (dir *Directory) IsRoot() bool {
	return dir.variant.kind == KindVolume
}

// Name returns the directory name.
func (dir *Directory) Name() string {
	return dir.name
}

// Parent returns the parent directory, or nil for the root.
func (dir *Directory) Parent() *Directory {
	return dir.parent
}

// Record returns the raw directory record.
func (dir *Directory) Record() DirectoryDescriptorRecord {
	return dir.record
}

// CreatedAt returns the creation timestamp.
func (dir *Directory) CreatedAt() Timestamp {
	return dir.record.CreatedAt
}

// FileCount is the declared number of files.
func (dir *Directory) FileCount() int {
	return int(dir.record.FileCount)
}

// SubdirectoryCount is the declared number of subdirectories.
func (dir *Directory) SubdirectoryCount() int {
	return int(dir.record.SubdirectoryCount)
}

// FileIndexAU is the AU of the file index as recorded.
func (dir *Directory) FileIndexAU() int {
	return int(dir.record.FileIndexAU)
}

// ParentAU is the parent pointer as recorded. The root has none.
func (dir *Directory) ParentAU() int {
	if dir.variant.hasParentPointer == false {
		return 0
	}

	return int(dir.record.ParentAU)
}

// FileIndex returns the parsed file index or nil if it could not be parsed.
func (dir *Directory) FileIndex() *FileIndex {
	return dir.fileIndex
}

// Files returns the head descriptor of every file in the directory.
func (dir *Directory) Files() []*FileDescriptor {
	if dir.fileIndex == nil {
		return nil
	}

	return dir.fileIndex.Files()
}

// SubdirectoryAUs returns the subdirectory pointers that preceded the end of
// the list.
func (dir *Directory) SubdirectoryAUs() []int {
	return dir.subdirectoryAUs
}

// Subdirectories returns the parsed subdirectories in on-disk order.
func (dir *Directory) Subdirectories() []*Directory {
	return dir.subdirectories
}

// Dump prints the directory and, optionally, its files and subdirectories.
func (dir *Directory) Dump(includeFiles, includeSubdirectories bool) {
	dir.dumpIndented("", includeFiles, includeSubdirectories)
}

func (dir *Directory) dumpIndented(indent string, includeFiles, includeSubdirectories bool) {
	fmt.Printf("%s%s at AU (%d): [%s]\n", indent, dir.kind, dir.au, dir.fullPath)

	dumpMessages(dir, indent+"  ")

	fmt.Printf("%s  Created: [%s]\n", indent, dir.CreatedAt())
	fmt.Printf("%s  Files: (%d)\n", indent, dir.FileCount())
	fmt.Printf("%s  Subdirectories: (%d)\n", indent, dir.SubdirectoryCount())
	fmt.Printf("%s  File index AU: (%d)\n", indent, dir.FileIndexAU())

	if dir.variant.hasParentPointer == true {
		fmt.Printf("%s  Parent AU: (%d)\n", indent, dir.ParentAU())
	}

	fmt.Printf("%s  Subdirectory AUs: %v\n", indent, dir.subdirectoryAUs)

	if dir.fileIndex != nil {
		dir.fileIndex.dumpIndented(indent+"  ", includeFiles)
	}

	if includeSubdirectories == true {
		for _, child := range dir.subdirectories {
			child.dumpIndented(indent+"  ", includeFiles, includeSubdirectories)
		}
	}
}

func (dir *Directory) String() string {
	return fmt.Sprintf("Directory<KIND=[%s] AU=(%d) PATH=[%s] FILES=(%d) SUBDIRS=(%d)>", dir.kind, dir.au, dir.fullPath, dir.FileCount(), dir.SubdirectoryCount())
}

func dumpMessages(e Entity, indent string) {
	for _, message := range e.Errors() {
		fmt.Printf("%sERROR: %s\n", indent, message)
	}

	for _, message := range e.Warnings() {
		fmt.Printf("%sWARNING: %s\n", indent, message)
	}
}
