// hardware_device_name.go defines the HardwareDeviceName type.

package types

// HardwareDeviceName is the kernel path of a hardware device,
// e.g. "/dev/dri/renderD128".
type HardwareDeviceName string
