// Package main is the entry point for the PM Copilot command-line console.
package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/kart-io/pm-copilot/cmd/copilot/app"
)

func main() {
	app.NewApp().Run()
}
