package main

import (
	"os"

	glancecmder "github.com/glancelabs/glance/cmd/glance"
)

func main() {
	cmd := glancecmder.NewGlanceCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
