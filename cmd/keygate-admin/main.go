package main

import "github.com/turtacn/keygate/cmd/cli"

func main() {
	cli.Execute()
}
