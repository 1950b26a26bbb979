package main

import "github.com/CodingTam/requesthtml/cmd"

func main() {
	cmd.Execute()
}
