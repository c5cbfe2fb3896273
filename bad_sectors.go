package tidisk

import (
	"bufio"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/dsoprea/go-logging"
)

const (
	badSectorLinePrefix = "Bad sectors on cylinder "
)

var (
	badSectorsLogger = log.NewLogger("tidisk.bad_sectors")
)

// ParseBadSectorReport reads a controller's bad-sector report. Only lines of
// the form "Bad sectors on cylinder C head H: S S SH ..." are used; anything
// else is ignored. A trailing "H" on a sector number is dropped.
func ParseBadSectorReport(r io.Reader, g Geometry) (addresses []SectorAddress, err error) {
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

	addresses = make([]SectorAddress, 0)

	s := bufio.NewScanner(r)
	for s.Scan() == true {
		line := s.Text()
		if strings.HasPrefix(line, badSectorLinePrefix) == false {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 7 {
			log.Panicf("bad-sector line too short: [%s]", line)
		}

		cylinder, err := strconv.Atoi(fields[4])
		log.PanicIf(err)

		head, err := strconv.Atoi(strings.Split(fields[6], ":")[0])
		log.PanicIf(err)

		for _, field := range fields[7:] {
			trackSector, err := strconv.Atoi(strings.Replace(field, "H", "", -1))
			log.PanicIf(err)

			logicalSector := g.ToLogicalSector(cylinder, head, trackSector)

			sa := SectorAddress{
				LogicalSector: logicalSector,
				Cylinder:      cylinder,
				Head:          head,
				TrackSector:   trackSector,
			}

			addresses = append(addresses, sa)
		}
	}

	err = s.Err()
	log.PanicIf(err)

	return addresses, nil
}

// ResolveKnownBadSectors looks up the role and owner of every reported bad
// sector. Sectors outside of the volume are skipped.
func (v *Volume) ResolveKnownBadSectors(addresses []SectorAddress) (reports []SectorReport) {
	reports = make([]SectorReport, 0, len(addresses))

	for _, sa := range addresses {
		sector := sa.LogicalSector
		if v.geometry.IsValidSector(sector) == false {
			badSectorsLogger.Warningf(nil, "Reported bad sector is outside of the volume: %s", sa)
			continue
		}

		sr := v.newSectorReport(sector, v.sectorMap.RoleAt(sector), v.sectorMap.OwnerAt(sector), v.Sector(sector))

		// Keep the address exactly as it was reported.
		sr.Address = sa

		reports = append(reports, sr)
	}

	return reports
}
