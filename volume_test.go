package tidisk

import (
	"testing"

	"github.com/dsoprea/go-logging"
	"github.com/stretchr/testify/require"
)

func TestDecode_SingleFile(t *testing.T) {
	ti := newTestSingleFileImage()
	v := ti.decode(t)

	if v.Diagnostics().ErrorCount() != 0 || v.Diagnostics().WarningCount() != 0 {
		dumpDiagnostics(t, v)
		t.Fatalf("Expected a clean volume.")
	}

	if v.Name() != testVolumeName {
		t.Fatalf("Volume name not correct: [%s]", v.Name())
	}

	files := v.Root().Files()
	if len(files) != 1 {
		t.Fatalf("Expected exactly one file: (%d)", len(files))
	}

	fd := files[0]

	if fd.FullPath() != "TESTVOL.HELLO" {
		t.Fatalf("Full path not correct: [%s]", fd.FullPath())
	}

	extents := fd.Extents()
	if len(extents) != 1 || extents[0].Start != 66 || extents[0].End != 66 {
		t.Fatalf("Extents not correct: %v", extents)
	}
}

func TestDecode_Geometry(t *testing.T) {
	ti := newTestImage(2)
	v := ti.decode(t)

	g := v.Geometry()

	require.Equal(t, testTotalAUs, g.TotalAUs)
	require.Equal(t, 2, g.SectorsPerAU)
	require.Equal(t, testHeads, g.Heads)
	require.Equal(t, testSectorsPerTrack, g.SectorsPerTrack)
	require.Equal(t, 4, g.Cylinders)
	require.Equal(t, 512, g.AuSize())
	require.Equal(t, 256, g.TotalSectors())
	require.Equal(t, 65536, g.TotalBytes())
}

func TestDecode_ImageTooSmall(t *testing.T) {
	_, err := Decode(make([]byte, 31*SectorSize))
	if err == nil {
		t.Fatalf("Expected failure for short image.")
	}

	ise, ok := AsImageSizeError(err)
	if ok != true {
		t.Fatalf("Expected a size error: [%s]", err)
	}

	require.Equal(t, 32*SectorSize, ise.Required)
	require.Equal(t, 31*SectorSize, ise.Actual)
}

func TestDecode_ImageTruncated(t *testing.T) {
	ti := newTestSingleFileImage()

	_, err := Decode(ti.raw[:100*SectorSize])
	if err == nil {
		t.Fatalf("Expected failure for truncated image.")
	}

	ise, ok := AsImageSizeError(err)
	if ok != true {
		t.Fatalf("Expected a size error: [%s]", err)
	}

	require.Equal(t, testTotalAUs*SectorSize, ise.Required)
	require.Equal(t, 100*SectorSize, ise.Actual)
}

func TestDecode_ReservedRegion(t *testing.T) {
	ti := newTestSingleFileImage()
	v := ti.decode(t)

	sm := v.SectorMap()

	require.Equal(t, RoleVolume, sm.RoleAt(0))

	for sector := 1; sector < 32; sector++ {
		require.Equal(t, RoleBitmap, sm.RoleAt(sector))
	}

	for sector := 32; sector < 64; sector++ {
		require.Equal(t, RoleUnused, sm.RoleAt(sector))
	}

	require.Equal(t, RoleFileIndex, sm.RoleAt(64))
	require.Equal(t, RoleFileDescriptor, sm.RoleAt(65))
	require.Equal(t, RoleDataExtent, sm.RoleAt(66))
	require.Equal(t, RoleFree, sm.RoleAt(67))

	require.Equal(t, Entity(v.Root()), sm.OwnerAt(0))
	require.Equal(t, Entity(v.Root().Files()[0]), sm.OwnerAt(66))
}

func TestDecode_AllocatedCounts(t *testing.T) {
	ti := newTestSingleFileImage()
	v := ti.decode(t)

	// Header, file index, descriptor and data.
	require.Equal(t, 67, v.AllocatedAUs())
	require.Equal(t, testTotalAUs-67, v.FreeAUs())
}

func TestDecode_HeaderMarkedFree(t *testing.T) {
	ti := newTestSingleFileImage()

	// AU 5 is part of the bitmap region.
	ti.raw[SectorSize] &^= 0x80 >> 5

	v := ti.decode(t)

	require.Equal(t, 0, v.Diagnostics().ErrorCount())
	require.Equal(t, []string{"Invalid Bitmap: VIB/ABM AU 5 marked as free"}, v.Root().Warnings())
}

func TestDecode_RootMagic(t *testing.T) {
	ti := newTestSingleFileImage()

	copy(ti.vib.Magic[:], "XYZ")
	ti.writeVolume()

	v := ti.decode(t)

	require.Equal(t, 0, v.Diagnostics().ErrorCount())
	require.Equal(t, []string{"invalid magic: XYZ"}, v.Root().Warnings())
}

func TestVolume_SectorOfAU(t *testing.T) {
	ti := newTestImage(2)
	ti.fillAU(70)

	v := ti.decode(t)

	require.Equal(t, ti.sectorOfAU(70, 1), v.SectorOfAU(70, 1))
	require.Equal(t, ti.sectorOfAU(70, 0), v.Sector(140))
	require.Equal(t, 512, len(v.AU(70)))
}

func TestVolume_Dump(t *testing.T) {
	ti := newTestSingleFileImage()
	v := ti.decode(t)

	v.InformationBlock().Dump()
	v.Dump()
	v.Root().Dump(true, true)
	v.Diagnostics().Dump()
}

func TestAsImageSizeError_Other(t *testing.T) {
	_, ok := AsImageSizeError(log.Errorf("some other error"))
	if ok != false {
		t.Fatalf("Expected no size error.")
	}
}
