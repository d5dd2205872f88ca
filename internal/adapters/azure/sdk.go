package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"

	"github.com/Yogeshviper/azure-ai-operator/internal/conf"
)

// armAPI is the set of Resource Manager operations the provisioner needs.
// Long-running operations are awaited before returning.
type armAPI interface {
	CreateOrUpdateResourceGroup(ctx context.Context, name string, rg armresources.ResourceGroup) (armresources.ResourceGroup, error)
	CreateStorageAccount(ctx context.Context, resourceGroup, name string, params armstorage.AccountCreateParameters) (armstorage.Account, error)
	CreateOrUpdateVirtualNetwork(ctx context.Context, resourceGroup, name string, vnet armnetwork.VirtualNetwork) (armnetwork.VirtualNetwork, error)
	CreateOrUpdatePublicIPAddress(ctx context.Context, resourceGroup, name string, ip armnetwork.PublicIPAddress) (armnetwork.PublicIPAddress, error)
	CreateOrUpdateNetworkInterface(ctx context.Context, resourceGroup, name string, nic armnetwork.Interface) (armnetwork.Interface, error)
	ListVirtualMachineSizes(ctx context.Context, location string) ([]string, error)
	CreateOrUpdateVirtualMachine(ctx context.Context, resourceGroup, name string, vm armcompute.VirtualMachine) (armcompute.VirtualMachine, error)
}

// NewCredential returns a service principal credential when one is fully
// configured and the ambient default credential chain otherwise.
func NewCredential(cfg conf.AzureConfig) (azcore.TokenCredential, error) {
	if cfg.HasServicePrincipal() {
		cred, err := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("azure: client secret credential: %w", err)
		}
		return cred, nil
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure: default credential: %w", err)
	}
	return cred, nil
}

// sdkAPI implements armAPI with the Azure SDK clients. The clients are
// read-only after construction and safe for concurrent use.
type sdkAPI struct {
	groups    *armresources.ResourceGroupsClient
	accounts  *armstorage.AccountsClient
	vnets     *armnetwork.VirtualNetworksClient
	publicIPs *armnetwork.PublicIPAddressesClient
	nics      *armnetwork.InterfacesClient
	vms       *armcompute.VirtualMachinesClient
	sizes     *armcompute.VirtualMachineSizesClient

	wait awaitOptions
}

var _ armAPI = (*sdkAPI)(nil)

func newSDKAPI(subscriptionID string, cred azcore.TokenCredential, opts *arm.ClientOptions, wait awaitOptions) (*sdkAPI, error) {
	var (
		api = &sdkAPI{wait: wait}
		err error
	)
	if api.groups, err = armresources.NewResourceGroupsClient(subscriptionID, cred, opts); err != nil {
		return nil, fmt.Errorf("azure: resource groups client: %w", err)
	}
	if api.accounts, err = armstorage.NewAccountsClient(subscriptionID, cred, opts); err != nil {
		return nil, fmt.Errorf("azure: storage accounts client: %w", err)
	}
	if api.vnets, err = armnetwork.NewVirtualNetworksClient(subscriptionID, cred, opts); err != nil {
		return nil, fmt.Errorf("azure: virtual networks client: %w", err)
	}
	if api.publicIPs, err = armnetwork.NewPublicIPAddressesClient(subscriptionID, cred, opts); err != nil {
		return nil, fmt.Errorf("azure: public ip client: %w", err)
	}
	if api.nics, err = armnetwork.NewInterfacesClient(subscriptionID, cred, opts); err != nil {
		return nil, fmt.Errorf("azure: network interfaces client: %w", err)
	}
	if api.vms, err = armcompute.NewVirtualMachinesClient(subscriptionID, cred, opts); err != nil {
		return nil, fmt.Errorf("azure: virtual machines client: %w", err)
	}
	if api.sizes, err = armcompute.NewVirtualMachineSizesClient(subscriptionID, cred, opts); err != nil {
		return nil, fmt.Errorf("azure: vm sizes client: %w", err)
	}
	return api, nil
}

func (a *sdkAPI) CreateOrUpdateResourceGroup(ctx context.Context, name string, rg armresources.ResourceGroup) (armresources.ResourceGroup, error) {
	resp, err := a.groups.CreateOrUpdate(ctx, name, rg, nil)
	if err != nil {
		return armresources.ResourceGroup{}, err
	}
	return resp.ResourceGroup, nil
}

func (a *sdkAPI) CreateStorageAccount(ctx context.Context, resourceGroup, name string, params armstorage.AccountCreateParameters) (armstorage.Account, error) {
	p, err := a.accounts.BeginCreate(ctx, resourceGroup, name, params, nil)
	if err != nil {
		return armstorage.Account{}, err
	}
	resp, err := await[armstorage.AccountsClientCreateResponse](ctx, p, a.wait, "storage account", name)
	if err != nil {
		return armstorage.Account{}, err
	}
	return resp.Account, nil
}

func (a *sdkAPI) CreateOrUpdateVirtualNetwork(ctx context.Context, resourceGroup, name string, vnet armnetwork.VirtualNetwork) (armnetwork.VirtualNetwork, error) {
	p, err := a.vnets.BeginCreateOrUpdate(ctx, resourceGroup, name, vnet, nil)
	if err != nil {
		return armnetwork.VirtualNetwork{}, err
	}
	resp, err := await[armnetwork.VirtualNetworksClientCreateOrUpdateResponse](ctx, p, a.wait, "virtual network", name)
	if err != nil {
		return armnetwork.VirtualNetwork{}, err
	}
	return resp.VirtualNetwork, nil
}

func (a *sdkAPI) CreateOrUpdatePublicIPAddress(ctx context.Context, resourceGroup, name string, ip armnetwork.PublicIPAddress) (armnetwork.PublicIPAddress, error) {
	p, err := a.publicIPs.BeginCreateOrUpdate(ctx, resourceGroup, name, ip, nil)
	if err != nil {
		return armnetwork.PublicIPAddress{}, err
	}
	resp, err := await[armnetwork.PublicIPAddressesClientCreateOrUpdateResponse](ctx, p, a.wait, "public ip address", name)
	if err != nil {
		return armnetwork.PublicIPAddress{}, err
	}
	return resp.PublicIPAddress, nil
}

func (a *sdkAPI) CreateOrUpdateNetworkInterface(ctx context.Context, resourceGroup, name string, nic armnetwork.Interface) (armnetwork.Interface, error) {
	p, err := a.nics.BeginCreateOrUpdate(ctx, resourceGroup, name, nic, nil)
	if err != nil {
		return armnetwork.Interface{}, err
	}
	resp, err := await[armnetwork.InterfacesClientCreateOrUpdateResponse](ctx, p, a.wait, "network interface", name)
	if err != nil {
		return armnetwork.Interface{}, err
	}
	return resp.Interface, nil
}

func (a *sdkAPI) ListVirtualMachineSizes(ctx context.Context, location string) ([]string, error) {
	var names []string
	pager := a.sizes.NewListPager(location, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, size := range page.Value {
			if size != nil && size.Name != nil {
				names = append(names, *size.Name)
			}
		}
	}
	return names, nil
}

func (a *sdkAPI) CreateOrUpdateVirtualMachine(ctx context.Context, resourceGroup, name string, vm armcompute.VirtualMachine) (armcompute.VirtualMachine, error) {
	p, err := a.vms.BeginCreateOrUpdate(ctx, resourceGroup, name, vm, nil)
	if err != nil {
		return armcompute.VirtualMachine{}, err
	}
	resp, err := await[armcompute.VirtualMachinesClientCreateOrUpdateResponse](ctx, p, a.wait, "virtual machine", name)
	if err != nil {
		return armcompute.VirtualMachine{}, err
	}
	return resp.VirtualMachine, nil
}
