package conversation

import (
	"errors"

	"github.com/rpggio/diyassist/internal/domain/project"
)

var (
	// ErrInvalidArgument indicates a malformed or missing request field.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrThreadNotFound indicates the thread doesn't exist.
	ErrThreadNotFound = errors.New("thread not found")
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = project.ErrProjectNotFound
	// ErrUpstream indicates the store or the agent failed.
	ErrUpstream = errors.New("upstream failure")
	// ErrConcurrentUpdate indicates another writer advanced the thread first.
	ErrConcurrentUpdate = errors.New("conversation modified concurrently")
)
