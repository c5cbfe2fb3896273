package tidisk

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileIndex_Files(t *testing.T) {
	ti := newTestSingleFileImage()
	v := ti.decode(t)

	fi := v.Root().FileIndex()

	require.Equal(t, v.Root(), fi.Directory())
	require.Equal(t, 0, fi.ParentAU())
	require.Equal(t, 1, fi.FileCount())
	require.Equal(t, []int{65}, fi.FileDescriptorAUs())
	require.Equal(t, "HELLO", fi.Files()[0].Name())
	require.Equal(t, fi, fi.Files()[0].FileIndex())
	require.Equal(t, RoleFileIndex, v.SectorMap().RoleAt(testRootFileIndexAU))
}

func TestFileIndex_BadSlots(t *testing.T) {
	ti := newTestImage(1)

	ti.setRootCounts(1, 0)

	// A valid slot, an out-of-range slot, the terminator and then a stray
	// pointer that follows it.
	ti.writeFileIndex(testRootFileIndexAU, 9, 65, 900, 0, 67)

	ti.writeFileDescriptor(65, 0, newTestFixedFile("HELLO", testRootFileIndexAU, 66))
	ti.fillAU(66)

	v := ti.decode(t)

	root := v.Root()
	fi := root.FileIndex()

	expectedErrors := []string{
		"parent DDR mismatch: DDR=9 parentAU=0",
		"invalid FDR AU at byte 2: 900",
	}

	require.Equal(t, expectedErrors, fi.Errors())
	require.Equal(t, []string{"ignored non-zero FDR AU after zero at byte 6: 67"}, fi.Warnings())
	require.Equal(t, 9, fi.ParentAU())
	require.Equal(t, []int{65}, fi.FileDescriptorAUs())
	require.Equal(t, 1, len(fi.Files()))

	require.Equal(t, 0, len(root.Errors()))
	require.Equal(t, 0, len(fi.Files()[0].Errors()))
	require.Equal(t, 2, v.Diagnostics().ErrorCount())
	require.Equal(t, 1, v.Diagnostics().WarningCount())
}

func TestFileIndex_FewerThanDeclared(t *testing.T) {
	ti := newTestImage(1)

	ti.setRootCounts(2, 0)
	ti.writeFileIndex(testRootFileIndexAU, 0, 65, 900)
	ti.writeFileDescriptor(65, 0, newTestFixedFile("HELLO", testRootFileIndexAU, 66))
	ti.fillAU(66)

	v := ti.decode(t)

	fi := v.Root().FileIndex()

	expected := []string{
		"invalid FDR AU at byte 2: 900",
		"DDR/FDIR file count mismatch: DDR=2 FDIR=1",
	}

	require.Equal(t, expected, fi.Errors())
	require.Equal(t, []string{"file count mismatch with FDIR: 2/1"}, v.Root().Errors())
}
