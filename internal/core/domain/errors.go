package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("domain: not found")

// ErrProvisioningTimeout is matched by every ProvisioningTimeoutError.
var ErrProvisioningTimeout = errors.New("domain: provisioning timed out")

// ProvisioningTimeoutError reports a long-running operation that did not
// reach a terminal state within the configured wait.
type ProvisioningTimeoutError struct {
	Resource string
	Name     string
	After    time.Duration
}

func (e *ProvisioningTimeoutError) Error() string {
	return fmt.Sprintf("domain: %s %q not provisioned after %s", e.Resource, e.Name, e.After)
}

func (e *ProvisioningTimeoutError) Is(target error) bool {
	return target == ErrProvisioningTimeout
}
