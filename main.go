package main

import "github.com/encodeous/ripple/cmd"

func main() {
	cmd.Execute()
}
