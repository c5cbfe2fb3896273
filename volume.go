// This package decodes hard-disk volume images: the volume information block,
// the allocation bitmap, the directory hierarchy and the file records, with
// every redundant pointer and count cross-checked along the way.

package tidisk

import (
	"fmt"
	"reflect"

	"github.com/dsoprea/go-logging"
	"github.com/go-errors/errors"
)

var (
	volumeLogger = log.NewLogger("tidisk.volume")
)

// ImageSizeError is returned when the image is too short to decode at all.
type ImageSizeError struct {
	Reason   string
	Required int
	Actual   int
}

func (ise ImageSizeError) Error() string {
	return fmt.Sprintf("%s: required=(%d) actual=(%d)", ise.Reason, ise.Required, ise.Actual)
}

// AsImageSizeError returns the size error behind `err`, if that is what it is.
func AsImageSizeError(err error) (ise ImageSizeError, ok bool) {
	if wrapped, isWrapped := err.(*errors.Error); isWrapped == true {
		err = wrapped.Err
	}

	ise, ok = err.(ImageSizeError)
	return ise, ok
}

// Volume is one decoded image. Everything hanging off of it is a read-only
// snapshot; only the diagnostics were accumulated while decoding.
type Volume struct {
	raw []byte

	geometry    Geometry
	vib         VolumeInformationBlock
	bitmap      *AllocationBitmap
	diagnostics *Diagnostics
	sectorMap   *SectorMap

	root *Directory

	allocatedAUs int
	freeAUs      int
}

// Decode decodes the whole image. The only errors returned are for images that
// are too short to hold their own header or their declared size; every other
// problem is recorded in the diagnostics.
func Decode(raw []byte) (volume *Volume, err error) {
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

	minimumSize := minimumImageSectors * SectorSize
	if len(raw) < minimumSize {
		log.Panic(ImageSizeError{
			Reason:   "image smaller than volume header and bitmap",
			Required: minimumSize,
			Actual:   len(raw),
		})
	}

	vib := VolumeInformationBlock{}

	err = unpackRecord(raw, &vib)
	log.PanicIf(err)

	g := newGeometry(int(vib.TotalAUs), int(vib.SectorsPerTrack), vib.HardDiskParameters)

	if len(raw) < g.TotalBytes() {
		log.Panic(ImageSizeError{
			Reason:   "image smaller than its declared size",
			Required: g.TotalBytes(),
			Actual:   len(raw),
		})
	}

	volumeLogger.Debugf(nil, "Decoding volume: %s %s", vib, g)

	volume = &Volume{
		raw:         raw,
		geometry:    g,
		vib:         vib,
		bitmap:      NewAllocationBitmap(raw),
		diagnostics: NewDiagnostics(),
	}

	root := newRootDirectory(g)

	volume.root = root
	volume.sectorMap = NewSectorMap(g, volume.diagnostics, root)

	volume.diagnostics.register(root)

	for au := 0; au < g.TotalAUs; au++ {
		if volume.bitmap.Test(au) == true {
			volume.allocatedAUs++
			volume.sectorMap.ClaimAU(au, RoleUnknown, newPlaceholderEntity(g, au, KindUnknown, RoleUnknown, ""))
		} else {
			volume.freeAUs++
			volume.sectorMap.ClaimAU(au, RoleFree, newPlaceholderEntity(g, au, KindFree, RoleFree, ""))
		}
	}

	d := &decoder{
		raw:         raw,
		geometry:    g,
		bitmap:      volume.bitmap,
		diagnostics: volume.diagnostics,
		sectorMap:   volume.sectorMap,

		parsedDirectories: make(map[int]struct{}),
	}

	d.parseDirectory(root, nil, raw[:SectorSize], nil)

	volume.stampReservedRegion()
	volume.checkBitmap()

	volumeLogger.Debugf(nil, "Decoded volume: ERRORS=(%d) WARNINGS=(%d)", volume.diagnostics.ErrorCount(), volume.diagnostics.WarningCount())

	return volume, nil
}

// stampReservedRegion overwrites the header region of the map. Nothing is
// allowed to live there so there is nothing to conflict with.
func (v *Volume) stampReservedRegion() {
	v.sectorMap.stamp(0, RoleVolume, v.root)

	for sector := bitmapFirstSector; sector < minimumImageSectors; sector++ {
		au := sector / v.geometry.SectorsPerAU
		v.sectorMap.stamp(sector, RoleBitmap, newPlaceholderEntity(v.geometry, au, KindBitmap, RoleBitmap, v.root.FullPath()))
	}

	for sector := minimumImageSectors; sector < reservedSectorCount; sector++ {
		au := sector / v.geometry.SectorsPerAU
		v.sectorMap.stamp(sector, RoleUnused, newPlaceholderEntity(v.geometry, au, KindUnused, RoleUnused, v.root.FullPath()))
	}
}

func (v *Volume) checkBitmap() {
	if v.allocatedAUs+v.freeAUs != v.geometry.TotalAUs {
		message := fmt.Sprintf("Invalid Bitmap: Total=%d Allocated=%d Free=%d", v.geometry.TotalAUs, v.allocatedAUs, v.freeAUs)
		v.diagnostics.AddWarning(v.root, message)
	}

	for au := 0; au < minimumImageSectors/v.geometry.SectorsPerAU; au++ {
		if v.bitmap.Test(au) == false {
			message := fmt.Sprintf("Invalid Bitmap: VIB/ABM AU %d marked as free", au)
			v.diagnostics.AddWarning(v.root, message)
		}
	}
}

// Geometry returns the volume geometry.
func (v *Volume) Geometry() Geometry {
	return v.geometry
}

// InformationBlock returns the raw volume information block.
func (v *Volume) InformationBlock() VolumeInformationBlock {
	return v.vib
}

// Bitmap returns the allocation bitmap.
func (v *Volume) Bitmap() *AllocationBitmap {
	return v.bitmap
}

// Diagnostics returns the registry populated while decoding.
func (v *Volume) Diagnostics() *Diagnostics {
	return v.diagnostics
}

// SectorMap returns the sector-ownership map.
func (v *Volume) SectorMap() *SectorMap {
	return v.sectorMap
}

// Root returns the root directory.
func (v *Volume) Root() *Directory {
	return v.root
}

// Name returns the volume name.
func (v *Volume) Name() string {
	return v.root.Name()
}

// AllocatedAUs is the number of AUs that the bitmap marks as allocated.
func (v *Volume) AllocatedAUs() int {
	return v.allocatedAUs
}

// FreeAUs is the number of AUs that the bitmap marks as free.
func (v *Volume) FreeAUs() int {
	return v.freeAUs
}

// AllocatedPercent is the share of AUs marked as allocated.
func (v *Volume) AllocatedPercent() float64 {
	if v.geometry.TotalAUs == 0 {
		return 0.0
	}

	return float64(v.allocatedAUs) * 100.0 / float64(v.geometry.TotalAUs)
}

// Dsk1EmulationAU is the AU of the file-descriptor of the DSK1 emulation file.
func (v *Volume) Dsk1EmulationAU() int {
	return int(v.vib.Dsk1EmulationAU)
}

// Sector returns the raw bytes of one logical sector.
func (v *Volume) Sector(sector int) []byte {
	offset := sector * SectorSize
	return v.raw[offset : offset+SectorSize]
}

// SectorOfAU returns the raw bytes of one sector of an AU.
func (v *Volume) SectorOfAU(au, sectorOffset int) []byte {
	return v.Sector(v.geometry.SectorOfAU(au, sectorOffset))
}

// AU returns the raw bytes of a whole AU.
func (v *Volume) AU(au int) []byte {
	offset := au * v.geometry.AuSize()
	return v.raw[offset : offset+v.geometry.AuSize()]
}

// Dump prints the volume summary.
func (v *Volume) Dump() {
	g := v.geometry

	fmt.Printf("Volume\n")
	fmt.Printf("======\n")
	fmt.Printf("\n")

	fmt.Printf("Name: [%s]\n", v.Name())
	fmt.Printf("Created: [%s]\n", v.root.CreatedAt())
	fmt.Printf("Total AUs: (%d)\n", g.TotalAUs)
	fmt.Printf("Allocated AUs: (%d) (%.1f%%)\n", v.allocatedAUs, v.AllocatedPercent())
	fmt.Printf("Free AUs: (%d)\n", v.freeAUs)
	fmt.Printf("Sectors per AU: (%d)\n", g.SectorsPerAU)
	fmt.Printf("AU size: (%d)\n", g.AuSize())
	fmt.Printf("Total sectors: (%d)\n", g.TotalSectors())
	fmt.Printf("Total bytes: (%d)\n", g.TotalBytes())
	fmt.Printf("Sectors per track: (%d)\n", g.SectorsPerTrack)
	fmt.Printf("Heads: (%d)\n", g.Heads)
	fmt.Printf("Cylinders: (%d)\n", g.Cylinders)
	fmt.Printf("Buffered head stepping: [%v]\n", g.BufferedHeadStepping)
	fmt.Printf("Write precompensation: (%d)\n", g.WritePrecompensation)
	fmt.Printf("DSK1 emulation AU: (%d)\n", v.Dsk1EmulationAU())
	fmt.Printf("Files: (%d)\n", v.root.FileCount())
	fmt.Printf("Subdirectories: (%d)\n", v.root.SubdirectoryCount())
	fmt.Printf("\n")
}

func (v *Volume) String() string {
	return fmt.Sprintf("Volume<NAME=[%s] AUS=(%d) ALLOCATED=(%d) FREE=(%d)>", v.Name(), v.geometry.TotalAUs, v.allocatedAUs, v.freeAUs)
}
