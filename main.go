package main

import "tiletagger/cmd"

func main() {
	cmd.Execute()
}
