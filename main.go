package main

import (
	"github.com/planora/core-service/cmd"
)

func main() {
	cmd.Execute()
}
