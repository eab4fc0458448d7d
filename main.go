package main

import "github.com/crossvenue/smartroute/cmd"

func main() {
	cmd.Execute()
}
