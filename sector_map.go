package tidisk

import (
	"fmt"
)

type sectorOwnership struct {
	role  MapRole
	owner Entity
}

// SectorMap records, for every sector of the volume, the role that it plays
// and the entity that owns it. A claim over a sector that already belongs to
// a different (role, AU) owner is recorded as a conflict and then wins.
type SectorMap struct {
	geometry    Geometry
	diagnostics *Diagnostics
	volume      diagnosable

	sectors []sectorOwnership
}

// NewSectorMap returns a map with every sector blank. Conflicts are reported
// through the registry against `volume`.
func NewSectorMap(g Geometry, diagnostics *Diagnostics, volume diagnosable) *SectorMap {
	sectors := make([]sectorOwnership, g.TotalSectors())
	for i := range sectors {
		sectors[i].role = RoleBlank
	}

	return &SectorMap{
		geometry:    g,
		diagnostics: diagnostics,
		volume:      volume,
		sectors:     sectors,
	}
}

// Len is the number of sectors in the map.
func (sm *SectorMap) Len() int {
	return len(sm.sectors)
}

// ClaimSector claims one sector of an AU for the owner using the given role.
// It returns false if the sector falls outside of the volume.
func (sm *SectorMap) ClaimSector(au, sectorOffset int, role MapRole, owner Entity) bool {
	sector := sm.geometry.SectorOfAU(au, sectorOffset)
	if sector < 0 || sector >= len(sm.sectors) {
		if d, ok := owner.(diagnosable); ok == true {
			sm.diagnostics.AddError(d, fmt.Sprintf("sector %d of AU %d is outside of the volume", sectorOffset, au))
		}

		return false
	}

	current := sm.sectors[sector]

	if current.role.IsPlaceholder() == false && (current.role != role || current.owner.AllocationUnit() != owner.AllocationUnit()) {
		sc := SectorConflict{
			Sector:        sector,
			PreviousRole:  current.role,
			PreviousOwner: current.owner,
			Role:          role,
			Owner:         owner,
		}

		sm.diagnostics.addConflict(sm.volume, sc)
	}

	sm.sectors[sector] = sectorOwnership{
		role:  role,
		owner: owner,
	}

	return true
}

// ClaimAU claims every sector of the AU. Directory, file-index and file-
// descriptor records only ever use the first sector, so the rest of their AU
// is claimed as unused.
func (sm *SectorMap) ClaimAU(au int, role MapRole, owner Entity) {
	if sm.ClaimSector(au, 0, role, owner) == false {
		return
	}

	if role.IsRecord() == true {
		role = RoleUnused
		owner = newPlaceholderEntity(sm.geometry, au, KindUnused, RoleUnused, owner.FullPath())
	}

	for i := 1; i < sm.geometry.SectorsPerAU; i++ {
		sm.ClaimSector(au, i, role, owner)
	}
}

// ClaimEntityAU claims the whole AU of the entity with the entity's own role.
func (sm *SectorMap) ClaimEntityAU(owner Entity) {
	sm.ClaimAU(owner.AllocationUnit(), owner.Role(), owner)
}

// stamp sets a sector without conflict detection. It is used for the fixed
// header region.
func (sm *SectorMap) stamp(sector int, role MapRole, owner Entity) {
	if sector < 0 || sector >= len(sm.sectors) {
		return
	}

	sm.sectors[sector] = sectorOwnership{
		role:  role,
		owner: owner,
	}
}

// RoleAt returns the role of the sector.
func (sm *SectorMap) RoleAt(sector int) MapRole {
	if sector < 0 || sector >= len(sm.sectors) {
		return RoleBlank
	}

	return sm.sectors[sector].role
}

// OwnerAt returns the owner of the sector, or nil if it was never claimed.
func (sm *SectorMap) OwnerAt(sector int) Entity {
	if sector < 0 || sector >= len(sm.sectors) {
		return nil
	}

	return sm.sectors[sector].owner
}

// LogicalMap renders one character per sector.
func (sm *SectorMap) LogicalMap() string {
	b := make([]byte, len(sm.sectors))
	for i, so := range sm.sectors {
		b[i] = byte(so.role)
	}

	return string(b)
}

// Count returns the number of sectors with the given role.
func (sm *SectorMap) Count(role MapRole) (n int) {
	for _, so := range sm.sectors {
		if so.role == role {
			n++
		}
	}

	return n
}
