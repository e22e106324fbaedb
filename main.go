package main

import "github.com/kozaktomas/tracelens/cmd"

func main() {
	cmd.Execute()
}
