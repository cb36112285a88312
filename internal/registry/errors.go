package registry

import "errors"

var (
	ErrUnknownTool       = errors.New("unknown tool")
	ErrUnknownResource   = errors.New("unknown resource")
	ErrInvalidParameters = errors.New("invalid parameters")
	ErrDuplicateTool     = errors.New("tool already registered")
	ErrDuplicateResource = errors.New("resource already registered")
	ErrInvalidSchema     = errors.New("invalid input schema")
)
