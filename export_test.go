package tidisk

import (
	"bytes"
	"io/ioutil"
	"os"
	"path"
	"testing"

	"github.com/dsoprea/go-logging"
	"github.com/stretchr/testify/require"
)

func TestVolume_Export(t *testing.T) {
	ti := newTestSingleFileImage()
	v := ti.decode(t)

	b := new(bytes.Buffer)

	sectorCount, err := v.Export(v.Root().Files()[0], b)
	log.PanicIf(err)

	require.Equal(t, 1, sectorCount)

	encoded := b.Bytes()

	require.Equal(t, TransferHeaderSize+SectorSize, len(encoded))

	header := encoded[:TransferHeaderSize]

	require.Equal(t, []byte("\x07TIFILES"), header[0:8])

	// Sectors allocated.
	require.Equal(t, []byte{0x00, 0x01}, header[8:10])

	// Flags, records-per-sector, EOF offset and record length.
	require.Equal(t, []byte{0x00, 0x03, 0x00, 0x50}, header[10:14])

	// The level-3 count keeps the descriptor's byte order.
	require.Equal(t, []byte{0x02, 0x00}, header[14:16])

	require.Equal(t, []byte("HELLO     "), header[16:26])
	require.Equal(t, make([]byte, TransferHeaderSize-26), header[26:])

	require.Equal(t, ti.sectorOfAU(66, 0), encoded[TransferHeaderSize:])
}

func TestVolume_Export_Chain(t *testing.T) {
	ti := newTestChainImage()
	v := ti.decode(t)

	b := new(bytes.Buffer)

	// Exporting from any node exports the whole file.
	sectorCount, err := v.Export(v.Root().Files()[0].Next(), b)
	log.PanicIf(err)

	require.Equal(t, 2, sectorCount)

	encoded := b.Bytes()

	require.Equal(t, TransferHeaderSize+2*SectorSize, len(encoded))
	require.Equal(t, ti.sectorOfAU(66, 0), encoded[TransferHeaderSize:TransferHeaderSize+SectorSize])
	require.Equal(t, ti.sectorOfAU(68, 0), encoded[TransferHeaderSize+SectorSize:])
}

func TestVolume_Export_MultiSectorAU(t *testing.T) {
	ti := newTestImage(2)

	ti.setRootCounts(1, 0)
	ti.writeFileIndex(testRootFileIndexAU, 0, 65)

	fdr := newTestFixedFile("HELLO", testRootFileIndexAU, 66)
	ti.writeFileDescriptor(65, 0, fdr)
	ti.fillAU(66)

	v := ti.decode(t)

	b := new(bytes.Buffer)

	// Only the allocated sector is written even though the AU has two.
	sectorCount, err := v.Export(v.Root().Files()[0], b)
	log.PanicIf(err)

	require.Equal(t, 1, sectorCount)
	require.Equal(t, ti.sectorOfAU(66, 0), b.Bytes()[TransferHeaderSize:])
}

func TestVolume_Export_ShortExtents(t *testing.T) {
	ti := newTestSingleFileImage()

	fdr := newTestFixedFile("HELLO", testRootFileIndexAU, 66)
	fdr.SectorsAllocated = 3

	ti.writeFileDescriptor(65, 0, fdr)

	v := ti.decode(t)

	b := new(bytes.Buffer)

	sectorCount, err := v.Export(v.Root().Files()[0], b)
	log.PanicIf(err)

	require.Equal(t, 1, sectorCount)
	require.Equal(t, TransferHeaderSize+SectorSize, b.Len())
}

func TestVolume_ExportTree(t *testing.T) {
	ti := newTestImage(1)

	ti.setRootCounts(1, 1, 70)
	ti.writeFileIndex(testRootFileIndexAU, 0, 65)
	ti.writeFileDescriptor(65, 0, newTestFixedFile("HELLO", testRootFileIndexAU, 66))
	ti.fillAU(66)

	ti.writeDirectory(70, "SUB", 0, 71, 1, 0)
	ti.writeFileIndex(71, 70, 72)
	ti.writeFileDescriptor(72, 0, newTestFixedFile("NOTES", 71, 73))
	ti.fillAU(73)

	v := ti.decode(t)

	tempPath, err := ioutil.TempDir("", "")
	log.PanicIf(err)

	defer os.RemoveAll(tempPath)

	err = v.ExportTree(v.Root(), tempPath)
	log.PanicIf(err)

	hello, err := ioutil.ReadFile(path.Join(tempPath, "TESTVOL", "HELLO"))
	log.PanicIf(err)

	require.Equal(t, TransferHeaderSize+SectorSize, len(hello))
	require.Equal(t, ti.sectorOfAU(66, 0), hello[TransferHeaderSize:])

	notes, err := ioutil.ReadFile(path.Join(tempPath, "TESTVOL", "SUB", "NOTES"))
	log.PanicIf(err)

	require.Equal(t, ti.sectorOfAU(73, 0), notes[TransferHeaderSize:])
}

func TestVolume_ExportTree_UnusableNames(t *testing.T) {
	ti := newTestImage(1)

	ti.setRootCounts(1, 1, 70)
	ti.writeFileIndex(testRootFileIndexAU, 0, 65)
	ti.writeFileDescriptor(65, 0, newTestFixedFile("/", testRootFileIndexAU, 66))
	ti.fillAU(66)

	ti.writeDirectory(70, "A.B", 0, 71, 1, 0)
	ti.writeFileIndex(71, 70, 72)
	ti.writeFileDescriptor(72, 0, newTestFixedFile("//", 71, 73))
	ti.fillAU(73)

	v := ti.decode(t)

	tempPath, err := ioutil.TempDir("", "")
	log.PanicIf(err)

	defer os.RemoveAll(tempPath)

	err = v.ExportTree(v.Root(), tempPath)
	log.PanicIf(err)

	rootEntries, err := ioutil.ReadDir(path.Join(tempPath, "TESTVOL"))
	log.PanicIf(err)

	names := make([]string, 0)
	for _, fi := range rootEntries {
		names = append(names, fi.Name())
	}

	require.Equal(t, []string{"AU65", "AU70"}, names)

	file, err := ioutil.ReadFile(path.Join(tempPath, "TESTVOL", "AU65"))
	log.PanicIf(err)

	require.Equal(t, ti.sectorOfAU(66, 0), file[TransferHeaderSize:])

	file, err = ioutil.ReadFile(path.Join(tempPath, "TESTVOL", "AU70", "AU72"))
	log.PanicIf(err)

	require.Equal(t, ti.sectorOfAU(73, 0), file[TransferHeaderSize:])

	// Nothing may land beside the exported volume.
	topEntries, err := ioutil.ReadDir(tempPath)
	log.PanicIf(err)

	require.Equal(t, 1, len(topEntries))
}

func TestHostName(t *testing.T) {
	require.Equal(t, "A.B", hostName("A/B"))
	require.Equal(t, "HELLO", hostName("HELLO"))
}
