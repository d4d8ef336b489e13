package main

import "github.com/eric8810/authy/cmd"

func main() {
	cmd.Execute()
}
