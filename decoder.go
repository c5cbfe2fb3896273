package tidisk

import (
	"fmt"
)

// decoder carries the shared state of one decode pass. It is single-use and
// is dropped once Decode returns.
type decoder struct {
	raw []byte

	geometry    Geometry
	bitmap      *AllocationBitmap
	diagnostics *Diagnostics
	sectorMap   *SectorMap

	// parsedDirectories holds the AU of every directory record parsed so far.
	parsedDirectories map[int]struct{}
}

func (d *decoder) sectorOfAU(au, sectorOffset int) []byte {
	offset := d.geometry.SectorOfAU(au, sectorOffset) * SectorSize
	if offset < 0 || offset+SectorSize > len(d.raw) {
		return nil
	}

	return d.raw[offset : offset+SectorSize]
}

func (d *decoder) errorf(e diagnosable, format string, args ...interface{}) {
	d.diagnostics.AddError(e, fmt.Sprintf(format, args...))
}

func (d *decoder) warningf(e diagnosable, format string, args ...interface{}) {
	d.diagnostics.AddWarning(e, fmt.Sprintf(format, args...))
}

// checkBitmap warns if the AU that the entity lives in is not marked as
// allocated.
func (d *decoder) checkBitmap(e diagnosable) {
	if d.bitmap.Test(e.AllocationUnit()) == false {
		d.warningf(e, "marked as free in volume bitmap")
	}
}
