package main

import (
	"github.com/fedsched/metasim/cmd"
)

func main() {
	cmd.Execute()
}
