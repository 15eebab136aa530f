package main

import "github.com/nvr-ai/go-videodiff/cmd/videodiff/commands"

func main() {
	commands.Execute()
}
