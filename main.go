package main

import "imgalpha/cmd"

func main() {
	cmd.Execute()
}
