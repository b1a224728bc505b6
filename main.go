package main

import "github.com/KaramelBytes/routespeed-cli/cmd"

func main() {
	cmd.Execute()
}
