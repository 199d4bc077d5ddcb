package repositories

import (
	"net/http"

	"github.com/rios0rios0/gitu/internal/domain/entities"
)

// SetClientFactory replaces the probe client factory for testing.
func (it *ForgeDetector) SetClientFactory(factory func(coord entities.Coordinate) (*http.Client, error)) {
	it.newClient = factory
}

// ApplyAzureSplit exports applyAzureSplit for testing.
var ApplyAzureSplit = applyAzureSplit //nolint:gochecknoglobals // test export
