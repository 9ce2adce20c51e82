package main

import "splicer/internal/cli"

func main() {
	cli.Execute()
}
