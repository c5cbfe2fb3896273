package tidisk

import (
	"fmt"
	"io"
	"reflect"

	"github.com/dsoprea/go-logging"
	"gopkg.in/yaml.v3"
)

// CheckVolume is the volume summary of a check report.
type CheckVolume struct {
	Name                 string `yaml:"name"`
	Created              string `yaml:"created,omitempty"`
	TotalBytes           int    `yaml:"total_bytes"`
	TotalSectors         int    `yaml:"total_sectors"`
	TotalAUs             int    `yaml:"total_aus"`
	AllocatedAUs         int    `yaml:"allocated_aus"`
	FreeAUs              int    `yaml:"free_aus"`
	SectorsPerTrack      int    `yaml:"sectors_per_track"`
	SectorsPerAU         int    `yaml:"sectors_per_au"`
	Heads                int    `yaml:"heads"`
	Cylinders            int    `yaml:"cylinders"`
	BufferedHeadStepping bool   `yaml:"buffered_head_stepping"`
	WritePrecompensation int    `yaml:"write_precompensation"`
	Dsk1EmulationAU      int    `yaml:"dsk1_emulation_au"`
}

// CheckEntry is one directory or file of the tree.
type CheckEntry struct {
	Path     string `yaml:"path"`
	Kind     string `yaml:"kind"`
	AU       int    `yaml:"au"`
	Type     string `yaml:"type,omitempty"`
	Flags    string `yaml:"flags,omitempty"`
	Created  string `yaml:"created,omitempty"`
	Modified string `yaml:"modified,omitempty"`
}

// CheckSector is one sector turned up by a scan.
type CheckSector struct {
	Address   string `yaml:"address"`
	Sector    int    `yaml:"sector"`
	Role      string `yaml:"role"`
	FirstWord string `yaml:"first_word"`
	OwnerKind string `yaml:"owner_kind,omitempty"`
	OwnerAU   int    `yaml:"owner_au"`
	OwnerPath string `yaml:"owner_path,omitempty"`
}

// CheckMessages is every message of one severity for one entity.
type CheckMessages struct {
	Kind     string   `yaml:"kind"`
	Address  string   `yaml:"address"`
	Path     string   `yaml:"path"`
	Messages []string `yaml:"messages"`
}

// CheckReport is the complete consistency report for one volume.
type CheckReport struct {
	Volume             CheckVolume     `yaml:"volume"`
	LogicalMap         string          `yaml:"logical_map"`
	Entries            []CheckEntry    `yaml:"entries"`
	UnknownSectors     []CheckSector   `yaml:"unknown_sectors"`
	OrphanCandidates   []CheckSector   `yaml:"orphan_candidates"`
	Errors             []CheckMessages `yaml:"errors"`
	Warnings           []CheckMessages `yaml:"warnings"`
	KnownBadSectors    []CheckSector   `yaml:"known_bad_sectors,omitempty"`
	PossibleBadSectors []CheckSector   `yaml:"possible_bad_sectors"`
}

func newCheckSector(sr SectorReport) CheckSector {
	cs := CheckSector{
		Address:   sr.Address.String(),
		Sector:    sr.Address.LogicalSector,
		Role:      sr.Role.String(),
		FirstWord: fmt.Sprintf("0x%04x", sr.FirstWord),
	}

	if sr.Owner != nil {
		cs.OwnerKind = string(sr.Owner.Kind())
		cs.OwnerAU = sr.Owner.AllocationUnit()
		cs.OwnerPath = sr.Owner.FullPath()
	}

	return cs
}

func newCheckSectors(reports []SectorReport) []CheckSector {
	sectors := make([]CheckSector, len(reports))
	for i, sr := range reports {
		sectors[i] = newCheckSector(sr)
	}

	return sectors
}

func newCheckMessages(grouped []EntityMessages) []CheckMessages {
	messages := make([]CheckMessages, len(grouped))
	for i, em := range grouped {
		messages[i] = CheckMessages{
			Kind:     string(em.Entity.Kind()),
			Address:  em.Entity.Address().String(),
			Path:     em.Entity.FullPath(),
			Messages: em.Messages,
		}
	}

	return messages
}

func timestampOrEmpty(ts Timestamp) string {
	if ts.IsZero() == true {
		return ""
	}

	return ts.String()
}

// NewCheckReport runs every scan and collects the results. `knownBad` may be
// nil.
func NewCheckReport(v *Volume, knownBad []SectorAddress) (cr *CheckReport, err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	g := v.Geometry()

	cr = &CheckReport{
		Volume: CheckVolume{
			Name:                 v.Name(),
			Created:              timestampOrEmpty(v.Root().CreatedAt()),
			TotalBytes:           g.TotalBytes(),
			TotalSectors:         g.TotalSectors(),
			TotalAUs:             g.TotalAUs,
			AllocatedAUs:         v.AllocatedAUs(),
			FreeAUs:              v.FreeAUs(),
			SectorsPerTrack:      g.SectorsPerTrack,
			SectorsPerAU:         g.SectorsPerAU,
			Heads:                g.Heads,
			Cylinders:            g.Cylinders,
			BufferedHeadStepping: g.BufferedHeadStepping,
			WritePrecompensation: g.WritePrecompensation,
			Dsk1EmulationAU:      v.Dsk1EmulationAU(),
		},
		LogicalMap: v.SectorMap().LogicalMap(),
		Entries:    make([]CheckEntry, 0),
		Errors:     newCheckMessages(v.Diagnostics().GlobalErrors()),
		Warnings:   newCheckMessages(v.Diagnostics().GlobalWarnings()),
	}

	tree := NewTree(v)

	err = tree.Load()
	log.PanicIf(err)

	cb := func(pathParts []string, node *TreeNode) (err error) {
		if node.IsDirectory() == true {
			dir := node.Directory()

			ce := CheckEntry{
				Path:    dir.FullPath(),
				Kind:    string(dir.Kind()),
				AU:      dir.AllocationUnit(),
				Created: timestampOrEmpty(dir.CreatedAt()),
			}

			cr.Entries = append(cr.Entries, ce)
		} else {
			fd := node.File()

			ce := CheckEntry{
				Path:     fd.FullPath(),
				Kind:     string(fd.Kind()),
				AU:       fd.AllocationUnit(),
				Type:     fd.FileType(),
				Flags:    fd.ListingFlags(),
				Created:  timestampOrEmpty(fd.CreatedAt()),
				Modified: timestampOrEmpty(fd.ModifiedAt()),
			}

			cr.Entries = append(cr.Entries, ce)
		}

		return nil
	}

	err = tree.Visit(cb)
	log.PanicIf(err)

	unknown, err := v.FindUnknownSectors()
	log.PanicIf(err)

	cr.UnknownSectors = newCheckSectors(unknown)

	orphans, err := v.FindOrphanRecordCandidates()
	log.PanicIf(err)

	cr.OrphanCandidates = newCheckSectors(orphans)

	if knownBad != nil {
		cr.KnownBadSectors = newCheckSectors(v.ResolveKnownBadSectors(knownBad))
	}

	possibleBad, err := v.FindPossibleBadSectors()
	log.PanicIf(err)

	cr.PossibleBadSectors = newCheckSectors(possibleBad)

	return cr, nil
}

// WriteYaml writes the report as a YAML document.
func (cr *CheckReport) WriteYaml(w io.Writer) (err error) {
	defer func() {
		if errRaw := recover(); errRaw != nil {
			var ok bool
			if err, ok = errRaw.(error); ok == true {
				err = log.Wrap(err)
			} else {
				err = log.Errorf("Error not an error: [%s] [%v]", reflect.TypeOf(errRaw).Name(), errRaw)
			}
		}
	}()

	e := yaml.NewEncoder(w)
	e.SetIndent(2)

	err = e.Encode(cr)
	log.PanicIf(err)

	err = e.Close()
	log.PanicIf(err)

	return nil
}
