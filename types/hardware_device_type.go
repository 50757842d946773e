// hardware_device_type.go defines the HardwareDeviceType enum and its methods.

// Package types provides common types shared by the primepipe packages.
package types

import (
	"fmt"
	"strings"
)

type HardwareDeviceType int

const (
	// the constants are copied from libav's enum AVHWDeviceType:
	HardwareDeviceTypeNone         = HardwareDeviceType(0x0)
	HardwareDeviceTypeVDPAU        = HardwareDeviceType(0x1)
	HardwareDeviceTypeCUDA         = HardwareDeviceType(0x2)
	HardwareDeviceTypeVAAPI        = HardwareDeviceType(0x3)
	HardwareDeviceTypeDXVA2        = HardwareDeviceType(0x4)
	HardwareDeviceTypeQSV          = HardwareDeviceType(0x5)
	HardwareDeviceTypeVideoToolbox = HardwareDeviceType(0x6)
	HardwareDeviceTypeD3D11VA      = HardwareDeviceType(0x7)
	HardwareDeviceTypeDRM          = HardwareDeviceType(0x8)
	HardwareDeviceTypeOpenCL       = HardwareDeviceType(0x9)
	HardwareDeviceTypeMediaCodec   = HardwareDeviceType(0xa)
	HardwareDeviceTypeVulkan       = HardwareDeviceType(0xb)
)

func (t HardwareDeviceType) String() string {
	switch t {
	case HardwareDeviceTypeNone:
		return "none"
	case HardwareDeviceTypeVDPAU:
		return "vdpau"
	case HardwareDeviceTypeCUDA:
		return "cuda"
	case HardwareDeviceTypeVAAPI:
		return "vaapi"
	case HardwareDeviceTypeDXVA2:
		return "dxva2"
	case HardwareDeviceTypeQSV:
		return "qsv"
	case HardwareDeviceTypeVideoToolbox:
		return "videotoolbox"
	case HardwareDeviceTypeD3D11VA:
		return "d3d11va"
	case HardwareDeviceTypeDRM:
		return "drm"
	case HardwareDeviceTypeOpenCL:
		return "opencl"
	case HardwareDeviceTypeMediaCodec:
		return "mediacodec"
	case HardwareDeviceTypeVulkan:
		return "vulkan"
	}
	return fmt.Sprintf("unknown_%X", int64(t))
}

func HardwareDeviceTypeFromString(s string) HardwareDeviceType {
	s = strings.Trim(strings.ToLower(s), " \n\r\t")
	for i := 0; i <= 0xff; i++ {
		hwt := HardwareDeviceType(i)
		if s == hwt.String() {
			return hwt
		}
	}
	return -1
}
