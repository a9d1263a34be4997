package main

import "github.com/strrl/health-sessions/cmd/health-sessions/commands"

func main() {
	commands.Execute()
}
