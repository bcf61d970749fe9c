package main

import "github.com/martinsmeder/AI-agent-test/cmd"

func main() {
	cmd.Execute()
}
