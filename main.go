package main

import "github.com/tanq16/everlauncher/cmd"

func main() {
	cmd.Execute()
}
