package handlers

import (
	"picture-frame/internal/rotation"
	"picture-frame/internal/scanner"
	"picture-frame/internal/store"
)

type Handlers struct {
	engine  *rotation.Engine
	scanner *scanner.Scanner
	store   *store.Store
}

func New(eng *rotation.Engine, sc *scanner.Scanner, st *store.Store) *Handlers {
	return &Handlers{
		engine:  eng,
		scanner: sc,
		store:   st,
	}
}
