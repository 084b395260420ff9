package main

import "github.com/essoham7/chinelivre/cmd"

func main() {
	cmd.Execute()
}
