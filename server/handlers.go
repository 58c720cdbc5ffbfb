package server

import (
	"github.com/onnwee/command-tender/backend/commands"
	"github.com/onnwee/command-tender/backend/store"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	store  store.Store
	merger *commands.Merger
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(st store.Store, merger *commands.Merger) *Handlers {
	return &Handlers{
		store:  st,
		merger: merger,
	}
}
