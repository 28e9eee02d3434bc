package main

import "github.com/eleven-am/goclip/internal/cli"

func main() {
	cli.Execute()
}
