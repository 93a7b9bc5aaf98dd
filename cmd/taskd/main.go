package main

import "github.com/aussiebroadwan/taskd/cmd/taskd/cmd"

func main() {
	cmd.Execute()
}
