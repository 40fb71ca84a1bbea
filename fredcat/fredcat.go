// Public domain.

package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/soniakeys/exit"

	"github.com/soniakeys/apass/internal/fredbin"
)

const parentImport = "github.com/soniakeys/apass"
const versionString = "fredcat version 0.1 Go source."
const copyrightString = "Public domain."

func main() {
	defer exit.Handler()

	flag.Usage = func() {
		os.Stderr.WriteString(
			"Usage: fredcat [options] <fredbin-file>...\n")
		flag.PrintDefaults()
		os.Stderr.WriteString(`
For full documentation:
   go doc ` + parentImport + `/fredcat
`)
	}
	summary := flag.Bool("s", false, "print only the record count of each file")
	legacy := flag.Bool("l", false, "read files of the old 100 byte layout")
	noHead := flag.Bool("n", false, "omit the column headings")
	vers := flag.Bool("v", false, "display version and copyright")
	flag.Parse()
	if *vers {
		fmt.Println(versionString)
		fmt.Println(copyrightString)
		return
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	if *summary {
		total := 0
		for _, fn := range flag.Args() {
			n, err := count(fn, *legacy)
			if err != nil {
				exit.Log(err)
			}
			fmt.Fprintf(w, "%9d %s\n", n, fn)
			total += n
		}
		if flag.NArg() > 1 {
			fmt.Fprintf(w, "%9d total\n", total)
		}
		return
	}
	if !*noHead {
		fmt.Fprintln(w, fredbin.TextHeader)
	}
	for _, fn := range flag.Args() {
		recs, err := read(fn, *legacy)
		if err != nil {
			exit.Log(err)
		}
		if err := fredbin.WriteText(w, recs); err != nil {
			exit.Log(err)
		}
	}
}

func read(fn string, legacy bool) ([]fredbin.Record, error) {
	if legacy {
		return fredbin.ReadLegacyFile(fn)
	}
	return fredbin.ReadFile(fn)
}

func count(fn string, legacy bool) (int, error) {
	if !legacy {
		return fredbin.Count(fn)
	}
	fi, err := os.Stat(fn)
	if err != nil {
		return 0, err
	}
	if fi.Size()%int64(fredbin.LegacySize) != 0 {
		return 0, fmt.Errorf("%s: not a legacy fredbin file", fn)
	}
	return int(fi.Size()) / fredbin.LegacySize, nil
}
