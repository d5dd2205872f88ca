package azure

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/network/armnetwork/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"

	"github.com/Yogeshviper/azure-ai-operator/internal/core/domain"
)

const (
	vnetAddressSpace = "10.0.0.0/16"
	subnetName       = "default"
	subnetPrefix     = "10.0.0.0/24"
	ipConfigName     = "ipconfig1"
)

func resourceGroupParams(location string) armresources.ResourceGroup {
	return armresources.ResourceGroup{Location: to.Ptr(location)}
}

func storageAccountParams(location string) armstorage.AccountCreateParameters {
	return armstorage.AccountCreateParameters{
		Location: to.Ptr(location),
		Kind:     to.Ptr(armstorage.KindStorageV2),
		SKU:      &armstorage.SKU{Name: to.Ptr(armstorage.SKUNameStandardLRS)},
	}
}

func virtualNetworkParams(location string) armnetwork.VirtualNetwork {
	return armnetwork.VirtualNetwork{
		Location: to.Ptr(location),
		Properties: &armnetwork.VirtualNetworkPropertiesFormat{
			AddressSpace: &armnetwork.AddressSpace{
				AddressPrefixes: []*string{to.Ptr(vnetAddressSpace)},
			},
			Subnets: []*armnetwork.Subnet{{
				Name: to.Ptr(subnetName),
				Properties: &armnetwork.SubnetPropertiesFormat{
					AddressPrefix: to.Ptr(subnetPrefix),
				},
			}},
		},
	}
}

func publicIPParams(location string) armnetwork.PublicIPAddress {
	return armnetwork.PublicIPAddress{
		Location: to.Ptr(location),
		SKU:      &armnetwork.PublicIPAddressSKU{Name: to.Ptr(armnetwork.PublicIPAddressSKUNameStandard)},
		Properties: &armnetwork.PublicIPAddressPropertiesFormat{
			PublicIPAllocationMethod: to.Ptr(armnetwork.IPAllocationMethodStatic),
		},
	}
}

func networkInterfaceParams(location string, subnetID, publicIPID *string) armnetwork.Interface {
	return armnetwork.Interface{
		Location: to.Ptr(location),
		Properties: &armnetwork.InterfacePropertiesFormat{
			IPConfigurations: []*armnetwork.InterfaceIPConfiguration{{
				Name: to.Ptr(ipConfigName),
				Properties: &armnetwork.InterfaceIPConfigurationPropertiesFormat{
					Subnet:          &armnetwork.Subnet{ID: subnetID},
					PublicIPAddress: &armnetwork.PublicIPAddress{ID: publicIPID},
				},
			}},
		},
	}
}

type vmSpec struct {
	name          string
	location      string
	size          string
	image         domain.ImageReference
	adminUsername string
	adminPassword string
	nicID         *string
}

func virtualMachineParams(s vmSpec) armcompute.VirtualMachine {
	return armcompute.VirtualMachine{
		Location: to.Ptr(s.location),
		Properties: &armcompute.VirtualMachineProperties{
			HardwareProfile: &armcompute.HardwareProfile{
				VMSize: to.Ptr(armcompute.VirtualMachineSizeTypes(s.size)),
			},
			StorageProfile: &armcompute.StorageProfile{
				ImageReference: &armcompute.ImageReference{
					Publisher: to.Ptr(s.image.Publisher),
					Offer:     to.Ptr(s.image.Offer),
					SKU:       to.Ptr(s.image.SKU),
					Version:   to.Ptr(s.image.Version),
				},
			},
			OSProfile: &armcompute.OSProfile{
				ComputerName:  to.Ptr(s.name),
				AdminUsername: to.Ptr(s.adminUsername),
				AdminPassword: to.Ptr(s.adminPassword),
			},
			NetworkProfile: &armcompute.NetworkProfile{
				NetworkInterfaces: []*armcompute.NetworkInterfaceReference{{ID: s.nicID}},
			},
		},
	}
}
