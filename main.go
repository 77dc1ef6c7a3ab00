package main

import "github.com/jfmyers9/mpvremote/cmd"

func main() {
	cmd.Execute()
}
