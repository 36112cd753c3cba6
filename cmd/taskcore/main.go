// Command taskcore administers a taskcore store from the shell: it applies
// the schema, manages projects and work items and exports or restores
// snapshots.
package main

import (
	"fmt"
	"os"
)

var (
	version  = "dev"
	exitFunc = os.Exit
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitFunc(1)
	}
}
