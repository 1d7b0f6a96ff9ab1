package main

import "github.com/KaramelBytes/airq-cli/cmd"

func main() {
	cmd.Execute()
}
