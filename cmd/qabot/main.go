package main

import "qabot/internal/cli"

func main() {
	cli.Execute()
}
