package main

import (
	"fmt"
	"os"

	"io/ioutil"

	"github.com/dsoprea/go-logging"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"

	"github.com/dsoprea/go-tidisk"
)

type rootParameters struct {
	Filepath        string `short:"f" long:"filepath" description:"File-path of the disk image" required:"true"`
	ExtractFilepath string `short:"e" long:"extract-filepath" description:"Full dotted path of the file to extract (e.g. VOLUME.DIR.FILE)"`
	OutputFilepath  string `short:"o" long:"output-filepath" description:"File-path to write to ('-' for STDOUT)"`
	ExportTreePath  string `short:"t" long:"export-tree" description:"Host directory to export the whole volume into"`
}

var (
	rootArguments = new(rootParameters)
)

// usageError returns the reason that the arguments can not be used, or an
// empty string.
func (rp *rootParameters) usageError() string {
	if rp.ExtractFilepath != "" && rp.OutputFilepath == "" {
		return "--output-filepath is required with --extract-filepath."
	}

	if rp.ExportTreePath == "" && rp.ExtractFilepath == "" {
		return "Either --export-tree or both --extract-filepath and --output-filepath are required."
	}

	return ""
}

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

	if message := rootArguments.usageError(); message != "" {
		fmt.Printf("%s\n", message)
		os.Exit(1)
	}

	raw, err := ioutil.ReadFile(rootArguments.Filepath)
	log.PanicIf(err)

	v, err := tidisk.Decode(raw)
	log.PanicIf(err)

	if rootArguments.ExportTreePath != "" {
		err := v.ExportTree(v.Root(), rootArguments.ExportTreePath)
		log.PanicIf(err)

		if rootArguments.ExtractFilepath == "" {
			return
		}
	}

	tree := tidisk.NewTree(v)

	err = tree.Load()
	log.PanicIf(err)

	// The full paths from List() are the same strings that the decoder
	// assigned, so the user's path can be matched exactly.
	_, nodes, err := tree.List()
	log.PanicIf(err)

	node, found := nodes[rootArguments.ExtractFilepath]
	if found != true || node.IsDirectory() == true {
		fmt.Printf("File not found.\n")
		os.Exit(2)
	}

	var g *os.File

	if rootArguments.OutputFilepath == "-" {
		g = os.Stdout
	} else {
		var err error

		g, err = os.Create(rootArguments.OutputFilepath)
		log.PanicIf(err)

		defer func() {
			g.Close()
		}()
	}

	sectorCount, err := v.Export(node.File(), g)
	log.PanicIf(err)

	if rootArguments.OutputFilepath != "-" {
		written := tidisk.TransferHeaderSize + sectorCount*tidisk.SectorSize
		fmt.Printf("(%s) sectors, (%s) bytes written.\n", humanize.Comma(int64(sectorCount)), humanize.Comma(int64(written)))
	}
}
