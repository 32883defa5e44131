package main

import "github.com/ocularid/eyemark/cmd"

func main() {
	cmd.Execute()
}
