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
	Filepath string `short:"f" long:"filepath" description:"File-path of the disk image" required:"true"`
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

	v.InformationBlock().Dump()
	v.Dump()

	g := v.Geometry()

	fmt.Printf("Size: %s (%s sectors)\n", humanize.Bytes(uint64(g.TotalBytes())), humanize.Comma(int64(g.TotalSectors())))
	fmt.Printf("Image size: %s\n", humanize.Bytes(uint64(len(raw))))
}
