package internal

import (
	"github.com/rios0rios0/gitu/internal/domain/entities"
)

// App aggregates the CLI controllers resolved from the container.
type App struct {
	controllers *[]entities.Controller
}

// NewApp creates the App with all registered controllers.
func NewApp(controllers *[]entities.Controller) *App {
	return &App{controllers: controllers}
}

// GetControllers returns the registered controllers.
func (it *App) GetControllers() []entities.Controller {
	return *it.controllers
}
