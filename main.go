package main

import "github.com/cellardb/cellar/cmd"

func main() {
	cmd.Execute()
}
