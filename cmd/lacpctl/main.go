// Command lacpctl is the CLI client for lacpd, talking to its status
// server over plain JSON (spec.md is silent on a control-plane CLI;
// ambient the way gobfdctl ships one for the BFD daemon — see
// DESIGN.md).
package main

import "github.com/dantte-lp/lacpd/cmd/lacpctl/commands"

func main() {
	commands.Execute()
}
