//go:build networking

package capability

import "netboot/config"

// Resolve reports the capabilities compiled into this binary.
func Resolve() config.Capabilities {
	return config.Capabilities{Networking: true}
}
