package tidisk

import (
	"fmt"
)

// AllocationUnitRange is one validated, contiguous, inclusive run of data AUs
// from a file-descriptor's data chain.
type AllocationUnitRange struct {
	geometry Geometry

	Start int
	End   int
}

func newAllocationUnitRange(g Geometry, start, end int) AllocationUnitRange {
	return AllocationUnitRange{
		geometry: g,
		Start:    start,
		End:      end,
	}
}

// IsValid indicates that the range is non-empty, does not start at AU 0, and
// lies inside the volume.
func (aur AllocationUnitRange) IsValid() bool {
	return aur.Start > 0 && aur.End >= aur.Start && aur.geometry.IsValidAU(aur.Start) == true && aur.geometry.IsValidAU(aur.End) == true
}

// AuCount is the number of AUs in the range, or zero if invalid.
func (aur AllocationUnitRange) AuCount() int {
	if aur.IsValid() == false {
		return 0
	}

	return aur.End - aur.Start + 1
}

// SectorCount is the number of sectors in the range, or zero if invalid.
func (aur AllocationUnitRange) SectorCount() int {
	return aur.AuCount() * aur.geometry.SectorsPerAU
}

// ContainsAU indicates whether the AU is inside the range.
func (aur AllocationUnitRange) ContainsAU(au int) bool {
	return aur.IsValid() == true && au >= aur.Start && au <= aur.End
}

// ContainsSector indicates whether the logical sector is inside the range.
func (aur AllocationUnitRange) ContainsSector(sector int) bool {
	if aur.IsValid() == false {
		return false
	}

	first := aur.Start * aur.geometry.SectorsPerAU
	last := (aur.End+1)*aur.geometry.SectorsPerAU - 1

	return sector >= first && sector <= last
}

func (aur AllocationUnitRange) String() string {
	return fmt.Sprintf("%d-%d", aur.Start, aur.End)
}
