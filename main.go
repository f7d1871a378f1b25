package main

import "github.com/yech1990/mrri/cmd"

func main() {
	cmd.Execute()
}
