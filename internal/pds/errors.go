package pds

import "fmt"

// SetupError reports a failure standing up this node's overlay
// identity or inbound destination — both are Start-time
// prerequisites, so a SetupError is always fatal to PDS startup.
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("pds: %s: %v", e.Op, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }
