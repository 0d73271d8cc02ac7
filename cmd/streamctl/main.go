package main

import "github.com/vireo-ai/streamkit/cmd/streamctl/cmd"

func main() {
	cmd.Execute()
}
