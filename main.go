package main

import "github.com/agentic-research/taxograph/cmd"

func main() {
	cmd.Execute()
}
