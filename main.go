package main

import "github.com/kozaktomas/smart-presence/cmd"

func main() {
	cmd.Execute()
}
