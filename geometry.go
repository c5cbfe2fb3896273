package tidisk

import (
	"fmt"
)

const (
	// SectorSize is fixed for every volume of this format.
	SectorSize = 256

	// bitmapFirstSector and bitmapSectorCount describe the allocation bitmap
	// region that immediately follows the volume information block.
	bitmapFirstSector = 1
	bitmapSectorCount = 31

	// minimumImageSectors covers the volume information block plus the
	// bitmap.
	minimumImageSectors = bitmapFirstSector + bitmapSectorCount

	// reservedSectorCount is the header region. Records and data start at
	// sector 64.
	reservedSectorCount = 64
)

// Geometry describes the physical and logical layout of a volume. It is
// computed once from the volume information block and never changes.
type Geometry struct {
	TotalAUs             int
	SectorsPerTrack      int
	SectorsPerAU         int
	Heads                int
	Cylinders            int
	BufferedHeadStepping bool
	WritePrecompensation int
}

func newGeometry(totalAUs, sectorsPerTrack int, hdp HardDiskParameters) Geometry {
	g := Geometry{
		TotalAUs:             totalAUs,
		SectorsPerTrack:      sectorsPerTrack,
		SectorsPerAU:         hdp.SectorsPerAU(),
		Heads:                hdp.Heads(),
		BufferedHeadStepping: hdp.BufferedHeadStepping(),
		WritePrecompensation: hdp.WritePrecompensation(),
	}

	if sectorsPerTrack > 0 {
		g.Cylinders = g.TotalSectors() / (sectorsPerTrack * g.Heads)
	}

	return g
}

// SectorSize returns the size of one sector in bytes.
func (g Geometry) SectorSize() int {
	return SectorSize
}

// TotalSectors is the number of sectors covered by all AUs.
func (g Geometry) TotalSectors() int {
	return g.SectorsPerAU * g.TotalAUs
}

// AuSize is the size of one allocation-unit in bytes.
func (g Geometry) AuSize() int {
	return g.SectorsPerAU * SectorSize
}

// TotalBytes is the size that the image must have, at least.
func (g Geometry) TotalBytes() int {
	return SectorSize * g.SectorsPerAU * g.TotalAUs
}

// IsValidAU indicates whether the AU is inside the volume. AU 0 is valid (it
// holds the volume information block).
func (g Geometry) IsValidAU(au int) bool {
	return au >= 0 && au < g.TotalAUs
}

// IsValidSector indicates whether the logical sector is inside the volume.
func (g Geometry) IsValidSector(sector int) bool {
	return sector >= 0 && sector < g.TotalSectors()
}

// IsValidSectorOfAU indicates whether the AU is valid and the offset falls
// inside of it.
func (g Geometry) IsValidSectorOfAU(au, sectorOffset int) bool {
	return g.IsValidAU(au) == true && sectorOffset >= 0 && sectorOffset < g.SectorsPerAU
}

// SectorOfAU returns the logical sector for a sector-offset within an AU.
func (g Geometry) SectorOfAU(au, sectorOffset int) int {
	return au*g.SectorsPerAU + sectorOffset
}

// ToLogicalSector converts a cylinder/head/track-sector triple to a logical
// sector.
func (g Geometry) ToLogicalSector(cylinder, head, trackSector int) int {
	return trackSector + head*g.SectorsPerTrack + cylinder*g.Heads*g.SectorsPerTrack
}

// FromLogicalSector converts a logical sector to its physical address. If the
// sectors-per-track value is zero there is no physical layout to speak of and
// only the logical sector is populated.
func (g Geometry) FromLogicalSector(sector int) SectorAddress {
	sa := SectorAddress{
		LogicalSector: sector,
	}

	if g.SectorsPerTrack == 0 || g.Heads == 0 {
		return sa
	}

	track := sector / g.SectorsPerTrack

	sa.TrackSector = sector % g.SectorsPerTrack
	sa.Head = track % g.Heads
	sa.Cylinder = track / g.Heads

	return sa
}

// AddressOfAU returns the physical address of the first sector of the AU.
func (g Geometry) AddressOfAU(au int) SectorAddress {
	return g.FromLogicalSector(au * g.SectorsPerAU)
}

// String returns a description of the geometry.
func (g Geometry) String() string {
	return fmt.Sprintf("Geometry<AUS=(%d) SECTORS-PER-AU=(%d) SECTORS-PER-TRACK=(%d) HEADS=(%d) CYLINDERS=(%d)>", g.TotalAUs, g.SectorsPerAU, g.SectorsPerTrack, g.Heads, g.Cylinders)
}

// SectorAddress is one sector expressed both logically and physically.
type SectorAddress struct {
	LogicalSector int
	Cylinder      int
	Head          int
	TrackSector   int
}

func (sa SectorAddress) String() string {
	return fmt.Sprintf("%5d C:%03d H:%d S:%02d", sa.LogicalSector, sa.Cylinder, sa.Head, sa.TrackSector)
}
