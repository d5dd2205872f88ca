package domain

import "strings"

const (
	// BasicSizePrefix selects the low-cost burstable VM family.
	BasicSizePrefix = "Standard_B"
	// DefaultVMSize is used when a region lists no burstable size.
	DefaultVMSize = "Standard_B2s"
)

// ImageReference identifies a marketplace image.
type ImageReference struct {
	Publisher string
	Offer     string
	SKU       string
	Version   string
}

var (
	WindowsImage = ImageReference{
		Publisher: "MicrosoftWindowsServer",
		Offer:     "WindowsServer",
		SKU:       "2019-Datacenter",
		Version:   "latest",
	}
	LinuxImage = ImageReference{
		Publisher: "Canonical",
		Offer:     "0001-com-ubuntu-server-jammy",
		SKU:       "22_04-lts",
		Version:   "latest",
	}
)

// SelectImage returns the Windows image when osType is "windows" in any
// casing and the Ubuntu image for everything else.
func SelectImage(osType string) ImageReference {
	if strings.EqualFold(osType, "windows") {
		return WindowsImage
	}
	return LinuxImage
}

// SelectVMSize returns the first size in the basic family, preserving the
// order the region listed them in.
func SelectVMSize(sizes []string) string {
	for _, s := range sizes {
		if strings.HasPrefix(s, BasicSizePrefix) {
			return s
		}
	}
	return DefaultVMSize
}

// Names of the supporting resources created alongside a VM.
func VNetName(vm string) string     { return vm + "-vnet" }
func PublicIPName(vm string) string { return vm + "-pip" }
func NICName(vm string) string      { return vm + "-nic" }
