package main

import "github.com/twiced-technology-gmbh/todu/cmd"

func main() {
	cmd.Execute()
}
