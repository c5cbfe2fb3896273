package tidisk

import (
	"fmt"
)

// MapRole is the role that a sector plays in the volume. The values are the
// characters used in the logical map.
type MapRole byte

const (
	RoleBlank          MapRole = '#'
	RoleVolume         MapRole = 'V'
	RoleBitmap         MapRole = 'B'
	RoleUnused         MapRole = '.'
	RoleFree           MapRole = ' '
	RoleDirectory      MapRole = 'D'
	RoleFileIndex      MapRole = 'I'
	RoleFileDescriptor MapRole = 'F'
	RoleDataExtent     MapRole = 'o'
	RoleUnknown        MapRole = '?'
)

// IsPlaceholder indicates that a sector with this role can be claimed without
// it counting as a conflict.
func (mr MapRole) IsPlaceholder() bool {
	return mr == RoleBlank || mr == RoleUnknown || mr == RoleFree
}

// IsRecord indicates a role whose records never occupy more than the first
// sector of their AU.
func (mr MapRole) IsRecord() bool {
	return mr == RoleDirectory || mr == RoleFileIndex || mr == RoleFileDescriptor
}

func (mr MapRole) String() string {
	switch mr {
	case RoleBlank:
		return "Blank"
	case RoleVolume:
		return "Volume"
	case RoleBitmap:
		return "Bitmap"
	case RoleUnused:
		return "Unused"
	case RoleFree:
		return "Free"
	case RoleDirectory:
		return "Directory"
	case RoleFileIndex:
		return "FileIndex"
	case RoleFileDescriptor:
		return "FileDescriptor"
	case RoleDataExtent:
		return "DataExtent"
	case RoleUnknown:
		return "Unknown"
	}

	return fmt.Sprintf("MapRole(0x%02x)", byte(mr))
}

// EntityKind is the short type-name of an entity.
type EntityKind string

const (
	KindVolume         EntityKind = "VIB"
	KindDirectory      EntityKind = "DDR"
	KindFileIndex      EntityKind = "FDIR"
	KindFileDescriptor EntityKind = "FDR"
	KindDataExtent     EntityKind = "DCPB"
	KindBitmap         EntityKind = "BITM"
	KindFree           EntityKind = "FREE"
	KindUnused         EntityKind = "UNUS"
	KindUnknown        EntityKind = "UNK"
)

// EntityId identifies a parsed entity for the life of one decode. Zero is
// reserved for placeholders, which are never registered.
type EntityId int

// Entity is anything that can own a sector or carry diagnostics.
type Entity interface {
	Id() EntityId
	AllocationUnit() int
	Kind() EntityKind
	Role() MapRole
	FullPath() string
	Address() SectorAddress

	Errors() []string
	Warnings() []string
	HasErrors() bool
	HasWarnings() bool
}

// diagnosable is implemented by every entity through its embedded base so the
// registry can append to the entity's own lists.
type diagnosable interface {
	Entity
	base() *entityBase
}

type entityBase struct {
	id       EntityId
	au       int
	kind     EntityKind
	role     MapRole
	fullPath string
	address  SectorAddress

	errors   []string
	warnings []string
}

func newEntityBase(g Geometry, au int, kind EntityKind, role MapRole) entityBase {
	return entityBase{
		au:      au,
		kind:    kind,
		role:    role,
		address: g.AddressOfAU(au),
	}
}

func (eb *entityBase) base() *entityBase {
	return eb
}

// Id returns the registry identity.
func (eb *entityBase) Id() EntityId {
	return eb.id
}

// AllocationUnit returns the AU that the entity lives in.
func (eb *entityBase) AllocationUnit() int {
	return eb.au
}

// Kind returns the entity type-name.
func (eb *entityBase) Kind() EntityKind {
	return eb.kind
}

// Role returns the map-role that the entity claims sectors with.
func (eb *entityBase) Role() MapRole {
	return eb.role
}

// FullPath returns the dotted path of the entity.
func (eb *entityBase) FullPath() string {
	return eb.fullPath
}

// Address returns the physical address of the entity's home sector.
func (eb *entityBase) Address() SectorAddress {
	return eb.address
}

// Errors returns the errors recorded against this entity.
func (eb *entityBase) Errors() []string {
	return eb.errors
}

// Warnings returns the warnings recorded against this entity.
func (eb *entityBase) Warnings() []string {
	return eb.warnings
}

// HasErrors indicates whether any error was recorded.
func (eb *entityBase) HasErrors() bool {
	return len(eb.errors) > 0
}

// HasWarnings indicates whether any warning was recorded.
func (eb *entityBase) HasWarnings() bool {
	return len(eb.warnings) > 0
}

// PlaceholderEntity owns sectors that are not part of any parsed record:
// bitmap, free, unused and unknown AUs.
type PlaceholderEntity struct {
	entityBase
}

func newPlaceholderEntity(g Geometry, au int, kind EntityKind, role MapRole, fullPath string) *PlaceholderEntity {
	pe := &PlaceholderEntity{
		entityBase: newEntityBase(g, au, kind, role),
	}

	pe.fullPath = fullPath

	return pe
}

func (pe *PlaceholderEntity) String() string {
	return fmt.Sprintf("PlaceholderEntity<KIND=[%s] AU=(%d)>", pe.kind, pe.au)
}
