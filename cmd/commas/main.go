package main

import "github.com/tmglimp/commas/internal/cli"

func main() {
	cli.Execute()
}
