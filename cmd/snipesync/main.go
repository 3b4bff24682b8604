package main

import "github.com/DrSkyle/snipesync/cmd/snipesync/commands"

func main() {
	commands.Execute()
}
