package main

import "github.com/biserd/completeset-arb/cmd"

func main() {
	cmd.Execute()
}
