package main

import "github.com/tubefocus/librarian-go/cmd"

func main() {
	cmd.Execute()
}
