package main

import (
	"os"

	"github.com/roleindex/roleindex/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
