package main

import "github.com/canopy-network/stakebatch/cmd/cli"

func main() {
	cli.Execute()
}
