package tidisk

// AllocationBitmap has one bit per AU, most-significant bit first (bit 7 of
// byte 0 is AU 0). A set bit means the AU is allocated.
//
// The bitmap owns a copy of the region so that Set never touches the image.
type AllocationBitmap struct {
	data []byte
}

// NewAllocationBitmap copies the bitmap region out of the raw image. The image
// must be at least as large as the header and bitmap region.
func NewAllocationBitmap(raw []byte) *AllocationBitmap {
	start := bitmapFirstSector * SectorSize
	end := start + bitmapSectorCount*SectorSize

	data := make([]byte, bitmapSectorCount*SectorSize)
	copy(data, raw[start:end])

	return &AllocationBitmap{
		data: data,
	}
}

// Test indicates whether the AU is marked as allocated. AUs beyond the
// bitmap region read as free.
func (ab *AllocationBitmap) Test(au int) bool {
	i := au / 8
	if au < 0 || i >= len(ab.data) {
		return false
	}

	return (ab.data[i]>>uint(7-au%8))&1 == 1
}

// Set marks the AU as allocated or free. AUs beyond the bitmap region are
// ignored.
func (ab *AllocationBitmap) Set(au int, used bool) {
	i := au / 8
	if au < 0 || i >= len(ab.data) {
		return
	}

	mask := byte(1) << uint(7-au%8)

	if used == true {
		ab.data[i] |= mask
	} else {
		ab.data[i] &^= mask
	}
}

// Capacity is the number of AUs that the bitmap region can describe.
func (ab *AllocationBitmap) Capacity() int {
	return len(ab.data) * 8
}
