package main

import "github.com/andrescamacho/robofleet/internal/adapters/cli"

func main() {
	cli.Execute()
}
