package main

import "github.com/dspace/dspace-rest/cmd/dspace-rest/cmd"

func main() {
	cmd.Execute()
}
