package main

import (
	"fmt"
	"os"
	"strings"

	"encoding/hex"
	"io/ioutil"

	"github.com/dsoprea/go-logging"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"

	"github.com/dsoprea/go-tidisk"
)

type rootParameters struct {
	Filepath          string `short:"f" long:"filepath" description:"File-path of the disk image" required:"true"`
	BadSectorFilepath string `short:"b" long:"bad-sectors" description:"File-path of a controller bad-sector report"`
	ExportTreePath    string `short:"e" long:"export-tree" description:"Host directory to export the whole volume into"`
	Yaml              bool   `short:"y" long:"yaml" description:"Print the report as YAML"`
}

var (
	rootArguments = new(rootParameters)
)

func main() {
	defer func() {
		if state := recover(); state != nil {
			err := log.Wrap(state.(error))
			log.PrintError(err)
			os.Exit(-1)
		}
	}()

	p := flags.NewParser(rootArguments, flags.Default)

	_, err := p.Parse()
	if err != nil {
		os.Exit(1)
	}

	raw, err := ioutil.ReadFile(rootArguments.Filepath)
	log.PanicIf(err)

	v, err := tidisk.Decode(raw)
	log.PanicIf(err)

	var knownBad []tidisk.SectorAddress
	if rootArguments.BadSectorFilepath != "" {
		f, err := os.Open(rootArguments.BadSectorFilepath)
		log.PanicIf(err)

		knownBad, err = tidisk.ParseBadSectorReport(f, v.Geometry())
		f.Close()

		log.PanicIf(err)
	}

	if rootArguments.ExportTreePath != "" {
		err := v.ExportTree(v.Root(), rootArguments.ExportTreePath)
		log.PanicIf(err)
	}

	if rootArguments.Yaml == true {
		cr, err := tidisk.NewCheckReport(v, knownBad)
		log.PanicIf(err)

		err = cr.WriteYaml(os.Stdout)
		log.PanicIf(err)
	} else {
		printReport(v, knownBad)
	}

	if v.Diagnostics().ErrorCount() > 0 {
		os.Exit(3)
	}
}

func printReport(v *tidisk.Volume, knownBad []tidisk.SectorAddress) {
	g := v.Geometry()

	fmt.Printf("Size: %s\n", humanize.Bytes(uint64(g.TotalBytes())))
	fmt.Printf("\n")

	v.Dump()
	v.Root().Dump(true, true)

	fmt.Printf("\n")
	fmt.Printf("Logical Map:\n")
	fmt.Printf("%s\n", v.SectorMap().LogicalMap())

	fmt.Printf("\n")
	fmt.Printf("Disk Tree:\n")
	printTree(v.Root(), "")

	unknown, err := v.FindUnknownSectors()
	log.PanicIf(err)

	fmt.Printf("\n")
	fmt.Printf("Unknown Allocated Sectors:\n")

	for _, sr := range unknown {
		printSector(sr, "  ")
	}

	orphans, err := v.FindOrphanRecordCandidates()
	log.PanicIf(err)

	fmt.Printf("\n")
	fmt.Printf("Sectors not in tree with possible FDR or DDR:\n")

	for _, sr := range orphans {
		printSector(sr, "  ")
	}

	fmt.Printf("\n")
	v.Diagnostics().Dump()

	fmt.Printf("\n")
	fmt.Printf("(%s) errors, (%s) warnings, (%s) sector conflicts.\n",
		humanize.Comma(int64(v.Diagnostics().ErrorCount())),
		humanize.Comma(int64(v.Diagnostics().WarningCount())),
		humanize.Comma(int64(len(v.Diagnostics().Conflicts()))))

	if knownBad != nil {
		fmt.Printf("\n")
		fmt.Printf("Known Bad Sectors:\n")

		for _, sr := range v.ResolveKnownBadSectors(knownBad) {
			printSectorOwner(sr, "  ")
		}
	}

	possibleBad, err := v.FindPossibleBadSectors()
	log.PanicIf(err)

	fmt.Printf("\n")
	fmt.Printf("Possible Bad Sectors:\n")

	for _, sr := range possibleBad {
		printSectorOwner(sr, "  ")
	}
}

func printTree(dir *tidisk.Directory, indent string) {
	fmt.Printf("%s%s:\n", indent, dir.FullPath())

	for _, fd := range dir.Files() {
		fmt.Printf("%s  %-10s  %s   %s  %s  %s\n", indent, fd.Name(), fd.ListingFlags(), fd.FileType(), fd.CreatedAt(), fd.ModifiedAt())
	}

	for _, child := range dir.Subdirectories() {
		fmt.Printf("%s  %-10s      DIR     %8d  %s\n", indent, child.Name(), child.FileCount()+child.SubdirectoryCount(), child.CreatedAt())
	}

	for _, child := range dir.Subdirectories() {
		fmt.Printf("\n")
		printTree(child, indent+"  ")
	}
}

func ownerDescription(owner tidisk.Entity) (kind string, au int, path string) {
	if owner == nil {
		return "", 0, ""
	}

	return string(owner.Kind()), owner.AllocationUnit(), owner.FullPath()
}

func printSector(sr tidisk.SectorReport, indent string) {
	kind, _, path := ownerDescription(sr.Owner)

	fmt.Printf("%s%-6s%s  %s\n", indent, kind, sr.Address, path)

	for _, line := range strings.Split(strings.TrimRight(hex.Dump(sr.Data), "\n"), "\n") {
		fmt.Printf("%s  %s\n", indent, line)
	}
}

func printSectorOwner(sr tidisk.SectorReport, indent string) {
	kind, au, path := ownerDescription(sr.Owner)

	fmt.Printf("%s%s (0x%04x) mapped to %-5s%5d %s\n", indent, sr.Address, sr.FirstWord, kind, au, path)
}
