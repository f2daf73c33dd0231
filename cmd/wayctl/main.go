package main

import "github.com/robotalks/way.go/pkg/cli/sh"

func main() {
	sh.Main()
}
