package model

import "github.com/m-mizutani/goerr/v2"

// Error kinds of the agent. Callers discriminate with errors.Is.
var (
	// ErrConfig indicates missing or invalid startup configuration. Fatal.
	ErrConfig = goerr.New("invalid configuration")

	// ErrTool indicates a single tool execution failed. The turn continues
	// with the remaining tools.
	ErrTool = goerr.New("tool execution failed")

	// ErrStorage indicates a memory read or write failed. The turn degrades
	// to a stateless response instead of aborting.
	ErrStorage = goerr.New("storage operation failed")

	// ErrGeneration indicates the completion service failed. The turn fails
	// and no assistant message is recorded.
	ErrGeneration = goerr.New("response generation failed")
)
