package tidisk

import (
	"fmt"
	"io"
	"os"
	"path"
	"reflect"
	"strings"

	"github.com/dsoprea/go-logging"
	"github.com/go-restruct/restruct"
)

const (
	// TransferHeaderSize is the size of the header written before the file
	// data.
	TransferHeaderSize = 128
)

var (
	exportLogger = log.NewLogger("tidisk.export")

	transferMagic = [8]byte{0x07, 'T', 'I', 'F', 'I', 'L', 'E', 'S'}
)

// transferHeader is the fixed header of the TIFILES transfer format. The
// fields are copied verbatim from the raw descriptor, so they keep the
// descriptor's own byte order.
type transferHeader struct {
	Magic               [8]byte
	SectorsAllocated    [2]byte
	Flags               uint8
	RecordsPerSector    uint8
	EofOffset           uint8
	LogicalRecordLength uint8
	Level3Records       [2]byte
	Name                [nameSize]byte
	Mxt                 uint8
	Reserved            uint8
	Padding             [TransferHeaderSize - 28]byte
}

func newTransferHeader(raw []byte) transferHeader {
	th := transferHeader{
		Magic:               transferMagic,
		Flags:               raw[12],
		RecordsPerSector:    raw[13],
		EofOffset:           raw[16],
		LogicalRecordLength: raw[17],
	}

	copy(th.SectorsAllocated[:], raw[14:16])
	copy(th.Level3Records[:], raw[18:20])
	copy(th.Name[:], raw[0:nameSize])

	return th
}

// Export writes the file in transfer format: the 128-byte header followed by
// whole sectors taken from the extents of every node in the chain until the
// head's allocated-sector count has been written. It returns the number of
// sectors written.
func (v *Volume) Export(fd *FileDescriptor, w io.Writer) (sectorCount int, err error) {
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

	head := fd.Head()

	if head.raw == nil {
		log.Panicf("file descriptor was never decoded: [%s]", head.fullPath)
	}

	th := newTransferHeader(head.raw)

	encoded, err := restruct.Pack(defaultEncoding, &th)
	log.PanicIf(err)

	_, err = w.Write(encoded)
	log.PanicIf(err)

	sectorsAllocated := head.sectorsAllocated
	sectorsPerAU := v.geometry.SectorsPerAU

	for node := head; node != nil && sectorCount < sectorsAllocated; node = node.next {
		for _, aur := range node.extents {
			for au := aur.Start; au <= aur.End && sectorCount < sectorsAllocated; au++ {
				for i := 0; i < sectorsPerAU && sectorCount < sectorsAllocated; i++ {
					_, err := w.Write(v.SectorOfAU(au, i))
					log.PanicIf(err)

					sectorCount++
				}
			}
		}
	}

	if sectorCount < sectorsAllocated {
		exportLogger.Warningf(nil, "Extents ran out before the allocated sectors were written: [%s] (%d) < (%d)", head.fullPath, sectorCount, sectorsAllocated)
	}

	return sectorCount, nil
}

// hostName converts a file or directory name to one that can be used on the
// host.
func hostName(name string) string {
	return strings.Replace(name, "/", ".", -1)
}

// hostEntryName returns the host name for one directory or file. A name that
// is not valid on the disk, or that would not name a single entry under its
// parent on the host, is replaced by its AU.
func hostEntryName(e Entity, name string, rawName []byte) string {
	converted := hostName(name)

	if IsValidName(rawName, false) == true && converted != "" && converted != "." && converted != ".." {
		return converted
	}

	substitute := fmt.Sprintf("AU%d", e.AllocationUnit())

	exportLogger.Warningf(nil, "Name can not be used on the host and will be replaced: [%s] -> [%s]", e.FullPath(), substitute)

	return substitute
}

// ExportTree writes the directory under `hostPath`: a host directory for the
// directory itself, a transfer-format file for each of its files and the same
// again for each subdirectory.
func (v *Volume) ExportTree(dir *Directory, hostPath string) (err error) {
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

	directoryPath := path.Join(hostPath, hostEntryName(dir, dir.Name(), dir.record.Name[:]))

	err = os.Mkdir(directoryPath, 0755)
	log.PanicIf(err)

	for _, fd := range dir.Files() {
		filepath := path.Join(directoryPath, hostEntryName(fd, fd.Name(), fd.record.Name[:]))

		err := v.exportToFile(fd, filepath)
		log.PanicIf(err)
	}

	for _, child := range dir.Subdirectories() {
		err := v.ExportTree(child, directoryPath)
		log.PanicIf(err)
	}

	return nil
}

func (v *Volume) exportToFile(fd *FileDescriptor, filepath string) (err error) {
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

	f, err := os.Create(filepath)
	log.PanicIf(err)

	defer f.Close()

	sectorCount, err := v.Export(fd, f)
	log.PanicIf(err)

	exportLogger.Debugf(nil, "Exported [%s] to [%s]: (%d) sectors.", fd.FullPath(), filepath, sectorCount)

	return nil
}
