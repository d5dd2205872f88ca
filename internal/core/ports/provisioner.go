package ports

import "context"

// ResourceProvisioner brings cloud resources into existence. Every method
// blocks until the remote operation has finished.
type ResourceProvisioner interface {
	CreateResourceGroup(ctx context.Context, name, location string) error
	CreateStorageAccount(ctx context.Context, name, resourceGroup, location string) error
	CreateVirtualMachine(ctx context.Context, resourceGroup, location, name, osType string) error
}
