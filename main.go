package main

import "github.com/molmez/cocokit/cmd"

func main() {
	cmd.Execute()
}
