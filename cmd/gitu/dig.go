package main

import (
	"go.uber.org/dig"

	"github.com/rios0rios0/gitu/internal"
)

func injectApp() *internal.App {
	container := dig.New()

	// Register all providers
	if err := internal.RegisterProviders(container); err != nil {
		panic(err)
	}

	// Invoke to get the App
	var app *internal.App
	if err := container.Invoke(func(a *internal.App) {
		app = a
	}); err != nil {
		panic(err)
	}

	return app
}
