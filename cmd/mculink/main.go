package main

import "github.com/mculink/mculink/cmd/mculink/cmd"

func main() {
	cmd.Execute()
}
