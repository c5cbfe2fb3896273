package main

import (
	"fmt"
	"os"

	"io/ioutil"
	"path/filepath"

	"github.com/dsoprea/go-logging"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"

	"github.com/dsoprea/go-tidisk"
)

type rootParameters struct {
	Filepath       string `short:"f" long:"filepath" description:"File-path of the disk image" required:"true"`
	FilenameFilter string `short:"p" long:"pattern" description:"Filename filter"`
	ShowDetail     bool   `short:"d" long:"detail" description:"Show additional entry detail"`
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

	tree := tidisk.NewTree(v)

	err = tree.Load()
	log.PanicIf(err)

	files, nodes, err := tree.List()
	log.PanicIf(err)

	for _, currentFilepath := range files {
		node := nodes[currentFilepath]

		if rootArguments.FilenameFilter != "" {
			isMatched, err := filepath.Match(rootArguments.FilenameFilter, node.Name())
			log.PanicIf(err)

			if isMatched != true {
				continue
			}
		}

		if node.IsDirectory() == true {
			dir := node.Directory()

			if rootArguments.ShowDetail == true {
				fmt.Printf("## %s\n", currentFilepath)
				fmt.Printf("\n")

				dir.Dump(false, false)

				fmt.Printf("\n")
			} else {
				entries := dir.FileCount() + dir.SubdirectoryCount()
				fmt.Printf("%-10s     DIR     %8s  %s  %s\n", node.Name(), humanize.Comma(int64(entries)), dir.CreatedAt(), currentFilepath)
			}

			continue
		}

		fd := node.File()

		if rootArguments.ShowDetail == true {
			fmt.Printf("## %s\n", currentFilepath)
			fmt.Printf("\n")

			fd.Dump()

			fmt.Printf("\n")
		} else {
			fmt.Printf("%-10s  %s   %s  %s  %s  %s\n", node.Name(), fd.ListingFlags(), fd.FileType(), fd.CreatedAt(), fd.ModifiedAt(), currentFilepath)
		}
	}
}
