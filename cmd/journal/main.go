// Command journal inspects and edits travel journals kept in a disk store,
// without running the API server.
//
//	journal show <destination-id>
//	journal op <destination-id> add-page --title "Day 2"
//	journal page set <destination-id> <page-id> "<p>text</p>"
//
// Settings come from flags, JOURNAL_* environment variables or a
// .journal.yaml file in the working directory.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
