package main

import "polycode/mcp-chat/cmd"

func main() {
	cmd.Execute()
}
