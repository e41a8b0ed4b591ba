package tool

import (
	"github.com/m-mizutani/fennec/pkg/adapter"
	"github.com/m-mizutani/fennec/pkg/repository"
)

// Client contains shared resources that tools can use
type Client struct {
	Repo   repository.Repository
	Gemini adapter.Gemini
}
