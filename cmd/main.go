package main

import "ngramlm/internal/cli"

func main() {
	cli.Execute()
}
