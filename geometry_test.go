package tidisk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeometry_Derived(t *testing.T) {
	g := newGeometry(testTotalAUs, testSectorsPerTrack, testHardDiskParameters(2, testHeads))

	require.Equal(t, 2, g.SectorsPerAU)
	require.Equal(t, 2, g.Heads)
	require.Equal(t, 4, g.Cylinders)
	require.Equal(t, 256, g.TotalSectors())
	require.Equal(t, 512, g.AuSize())
	require.Equal(t, 65536, g.TotalBytes())
	require.Equal(t, SectorSize, g.SectorSize())
}

func TestGeometry_Validity(t *testing.T) {
	g := newGeometry(testTotalAUs, testSectorsPerTrack, testHardDiskParameters(2, testHeads))

	require.Equal(t, true, g.IsValidAU(0))
	require.Equal(t, true, g.IsValidAU(127))
	require.Equal(t, false, g.IsValidAU(128))
	require.Equal(t, false, g.IsValidAU(-1))

	require.Equal(t, true, g.IsValidSector(255))
	require.Equal(t, false, g.IsValidSector(256))

	require.Equal(t, true, g.IsValidSectorOfAU(10, 1))
	require.Equal(t, false, g.IsValidSectorOfAU(10, 2))
	require.Equal(t, false, g.IsValidSectorOfAU(128, 0))

	require.Equal(t, 21, g.SectorOfAU(10, 1))
}

func TestGeometry_FromLogicalSector(t *testing.T) {
	g := newGeometry(testTotalAUs, testSectorsPerTrack, testHardDiskParameters(2, testHeads))

	sa := g.FromLogicalSector(100)

	expected := SectorAddress{
		LogicalSector: 100,
		Cylinder:      1,
		Head:          1,
		TrackSector:   4,
	}

	require.Equal(t, expected, sa)
	require.Equal(t, "  100 C:001 H:1 S:04", sa.String())
}

func TestGeometry_RoundTrip(t *testing.T) {
	g := newGeometry(testTotalAUs, testSectorsPerTrack, testHardDiskParameters(2, testHeads))

	for sector := 0; sector < g.TotalSectors(); sector++ {
		sa := g.FromLogicalSector(sector)

		recovered := g.ToLogicalSector(sa.Cylinder, sa.Head, sa.TrackSector)
		if recovered != sector {
			t.Fatalf("Sector (%d) did not survive the round-trip: (%d)", sector, recovered)
		}
	}
}

func TestGeometry_NoSectorsPerTrack(t *testing.T) {
	g := newGeometry(testTotalAUs, 0, testHardDiskParameters(1, 1))

	require.Equal(t, 0, g.Cylinders)
	require.Equal(t, SectorAddress{LogicalSector: 100}, g.FromLogicalSector(100))
}

func TestGeometry_AddressOfAU(t *testing.T) {
	g := newGeometry(testTotalAUs, testSectorsPerTrack, testHardDiskParameters(2, testHeads))

	require.Equal(t, g.FromLogicalSector(20), g.AddressOfAU(10))
}
