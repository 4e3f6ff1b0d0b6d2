// Command pktsim runs the packet simulation.
package main

import "github.com/sarchlab/pktsim/cmd"

func main() {
	cmd.Execute()
}
