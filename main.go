package main

import (
	"ReadTune/cmd"
)

func main() {
	cmd.Execute()
}
