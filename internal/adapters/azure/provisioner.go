// Package azure provisions resources through Azure Resource Manager.
package azure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v5"

	"github.com/Yogeshviper/azure-ai-operator/internal/conf"
	"github.com/Yogeshviper/azure-ai-operator/internal/core/domain"
	"github.com/Yogeshviper/azure-ai-operator/internal/core/ports"
)

const vmChainSteps = 5

// ErrNoAdminPassword is returned before any VM resource is created when the
// OS profile password is not configured.
var ErrNoAdminPassword = errors.New("azure: VM_ADMIN_PASSWORD is not configured")

// Provisioner implements ports.ResourceProvisioner. Each call runs its
// Resource Manager operations one after another and leaves whatever was
// created in place when a later operation fails.
type Provisioner struct {
	api           armAPI
	adminUsername string
	adminPassword string
	logger        *slog.Logger
}

// compile-time interface assertion
var _ ports.ResourceProvisioner = (*Provisioner)(nil)

// NewProvisioner builds the SDK clients for the configured subscription.
func NewProvisioner(azureCfg conf.AzureConfig, provCfg conf.ProvisioningConfig, cred azcore.TokenCredential, logger *slog.Logger) (*Provisioner, error) {
	api, err := newSDKAPI(azureCfg.SubscriptionID, cred, nil, awaitOptions{
		timeout:   provCfg.Timeout,
		frequency: provCfg.PollFrequency,
	})
	if err != nil {
		return nil, err
	}
	return newProvisioner(api, provCfg.AdminUsername, provCfg.AdminPassword, logger), nil
}

func newProvisioner(api armAPI, adminUsername, adminPassword string, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{
		api:           api,
		adminUsername: adminUsername,
		adminPassword: adminPassword,
		logger:        logger.With("component", "azure"),
	}
}

// CreateResourceGroup creates or updates a resource group. Repeating the
// call with the same name and location is a no-op update.
func (p *Provisioner) CreateResourceGroup(ctx context.Context, name, location string) error {
	p.logger.Info("creating resource group", "name", name, "location", location)
	if _, err := p.api.CreateOrUpdateResourceGroup(ctx, name, resourceGroupParams(location)); err != nil {
		return fmt.Errorf("azure: create resource group %q: %w", name, err)
	}
	return nil
}

// CreateStorageAccount creates a Standard_LRS StorageV2 account and waits
// for the operation to finish.
func (p *Provisioner) CreateStorageAccount(ctx context.Context, name, resourceGroup, location string) error {
	p.logger.Info("creating storage account", "name", name, "resource_group", resourceGroup, "location", location)
	if _, err := p.api.CreateStorageAccount(ctx, resourceGroup, name, storageAccountParams(location)); err != nil {
		return fmt.Errorf("azure: create storage account %q: %w", name, err)
	}
	return nil
}

// CreateVirtualMachine runs the VM chain: size lookup, virtual network,
// public IP, network interface, virtual machine. The size lookup creates
// nothing, so a failure there leaves no resources behind.
func (p *Provisioner) CreateVirtualMachine(ctx context.Context, resourceGroup, location, name, osType string) error {
	if p.adminPassword == "" {
		return ErrNoAdminPassword
	}
	log := p.logger.With("vm", name, "resource_group", resourceGroup, "location", location)
	var created []string
	fail := func(step int, resource, resName string, err error) error {
		if len(created) > 0 {
			log.Warn("vm chain failed, leaving partial resources", "step", step, "created", created)
		}
		return &StepError{Step: step, Resource: resource, Name: resName, Created: created, Err: err}
	}

	sizes, err := p.api.ListVirtualMachineSizes(ctx, location)
	if err != nil {
		return fail(1, "vm sizes", location, err)
	}
	size := domain.SelectVMSize(sizes)
	image := domain.SelectImage(osType)

	vnetName := domain.VNetName(name)
	log.Info("creating virtual network", "name", vnetName)
	vnet, err := p.api.CreateOrUpdateVirtualNetwork(ctx, resourceGroup, vnetName, virtualNetworkParams(location))
	if err != nil {
		return fail(2, "virtual network", vnetName, err)
	}
	created = append(created, vnetName)
	subnetID := firstSubnetID(vnet)
	if subnetID == nil {
		return fail(2, "virtual network", vnetName, errors.New("response has no subnet id"))
	}

	pipName := domain.PublicIPName(name)
	log.Info("creating public ip address", "name", pipName)
	pip, err := p.api.CreateOrUpdatePublicIPAddress(ctx, resourceGroup, pipName, publicIPParams(location))
	if err != nil {
		return fail(3, "public ip address", pipName, err)
	}
	created = append(created, pipName)
	if pip.ID == nil {
		return fail(3, "public ip address", pipName, errors.New("response has no id"))
	}

	nicName := domain.NICName(name)
	log.Info("creating network interface", "name", nicName)
	nic, err := p.api.CreateOrUpdateNetworkInterface(ctx, resourceGroup, nicName, networkInterfaceParams(location, subnetID, pip.ID))
	if err != nil {
		return fail(4, "network interface", nicName, err)
	}
	created = append(created, nicName)
	if nic.ID == nil {
		return fail(4, "network interface", nicName, errors.New("response has no id"))
	}

	log.Info("creating virtual machine", "size", size, "image", image.Offer)
	_, err = p.api.CreateOrUpdateVirtualMachine(ctx, resourceGroup, name, virtualMachineParams(vmSpec{
		name:          name,
		location:      location,
		size:          size,
		image:         image,
		adminUsername: p.adminUsername,
		adminPassword: p.adminPassword,
		nicID:         nic.ID,
	}))
	if err != nil {
		return fail(5, "virtual machine", name, err)
	}
	return nil
}

func firstSubnetID(vnet armnetwork.VirtualNetwork) *string {
	if vnet.Properties == nil || len(vnet.Properties.Subnets) == 0 || vnet.Properties.Subnets[0] == nil {
		return nil
	}
	return vnet.Properties.Subnets[0].ID
}
