package tidisk

import (
	"strings"
	"testing"

	"github.com/dsoprea/go-logging"
	"github.com/stretchr/testify/require"
)

const (
	testBadSectorReport = `Surface analysis complete.
Bad sectors on cylinder 1 head 1: 4 5H
Bad sectors on cylinder 0 head 0: 2
Bad sectors on cylinder 9 head 0: 1
Done.
`
)

func TestParseBadSectorReport(t *testing.T) {
	g := newGeometry(testTotalAUs, testSectorsPerTrack, testHardDiskParameters(1, testHeads))

	addresses, err := ParseBadSectorReport(strings.NewReader(testBadSectorReport), g)
	log.PanicIf(err)

	expected := []SectorAddress{
		{LogicalSector: 100, Cylinder: 1, Head: 1, TrackSector: 4},
		{LogicalSector: 101, Cylinder: 1, Head: 1, TrackSector: 5},
		{LogicalSector: 2, Cylinder: 0, Head: 0, TrackSector: 2},
		{LogicalSector: 577, Cylinder: 9, Head: 0, TrackSector: 1},
	}

	require.Equal(t, expected, addresses)
}

func TestParseBadSectorReport_Invalid(t *testing.T) {
	g := newGeometry(testTotalAUs, testSectorsPerTrack, testHardDiskParameters(1, testHeads))

	_, err := ParseBadSectorReport(strings.NewReader("Bad sectors on cylinder X head 0: 1\n"), g)
	if err == nil {
		t.Fatalf("Expected failure for bad cylinder.")
	}
}

func TestVolume_ResolveKnownBadSectors(t *testing.T) {
	ti := newTestSingleFileImage()
	v := ti.decode(t)

	addresses, err := ParseBadSectorReport(strings.NewReader(testBadSectorReport), v.Geometry())
	log.PanicIf(err)

	reports := v.ResolveKnownBadSectors(addresses)

	// The sector on cylinder 9 is outside of the volume.
	if len(reports) != 3 {
		t.Fatalf("Expected three resolved sectors: (%d)", len(reports))
	}

	require.Equal(t, addresses[0], reports[0].Address)
	require.Equal(t, RoleFree, reports[0].Role)

	require.Equal(t, 2, reports[2].Address.LogicalSector)
	require.Equal(t, RoleBitmap, reports[2].Role)
	require.Equal(t, KindBitmap, reports[2].Owner.Kind())
}
