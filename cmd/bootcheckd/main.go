package main

import (
	"github.com/NVIDIA/bootcheck/pkg/cli"
)

func main() {
	cli.Execute()
}
