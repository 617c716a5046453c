package main

import "github.com/campusmate/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
