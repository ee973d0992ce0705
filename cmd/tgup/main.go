package main

import "tgup/internal/cli"

func main() {
	cli.Execute()
}
