package main

import "github.com/vuminhngo/sitescout-cli/cmd"

// execCmd is indirected so tests can stub command execution.
var execCmd = cmd.Execute

func main() {
	execCmd()
}
