package main

import "github.com/Pjt727/homeroom/cmd"

func main() {
	cmd.Execute()
}
