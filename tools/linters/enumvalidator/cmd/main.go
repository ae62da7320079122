package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"forest.app/forest/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
