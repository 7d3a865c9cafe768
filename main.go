package main

import "github.com/VoxDroid/tabrun/cmd"

func main() {
	cmd.Execute()
}
