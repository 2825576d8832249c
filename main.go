package main

import "github.com/milordsutrix/tool-tubecutter/cmd"

func main() {
	cmd.Execute()
}
