// Command dashfix rewrites Grafana dashboard datasource references to a
// target UID, keeping a one-shot backup of the original file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rcarraroia/renum/internal/ops/dashboard"
)

func main() {
	fs := flag.NewFlagSet("dashfix", flag.ExitOnError)
	uid := fs.String("uid", "", "target datasource UID (required)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: dashfix --uid <datasource-uid> <dashboard.json> [more.json ...]\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])

	if *uid == "" || fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	failed := false
	for _, path := range fs.Args() {
		res, err := dashboard.Fix(path, *uid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed = true
			continue
		}
		switch {
		case res.Rewritten == 0:
			fmt.Printf("%s: already up to date\n", path)
		case res.BackupPath != "":
			fmt.Printf("%s: rewrote %d reference(s), backup at %s\n", path, res.Rewritten, res.BackupPath)
		default:
			fmt.Printf("%s: rewrote %d reference(s)\n", path, res.Rewritten)
		}
	}
	if failed {
		os.Exit(1)
	}
}
