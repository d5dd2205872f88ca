package azure

import (
	"fmt"
	"strings"
)

// StepError reports which step of the VM chain failed. Resources created by
// earlier steps are not removed and are listed in Created.
type StepError struct {
	Step     int
	Resource string
	Name     string
	Created  []string
	Err      error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("azure: step %d/%d (%s %q): %v", e.Step, vmChainSteps, e.Resource, e.Name, e.Err)
	if len(e.Created) > 0 {
		msg += fmt.Sprintf(" (left in place: %s)", strings.Join(e.Created, ", "))
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}
