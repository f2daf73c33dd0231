package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
)

const appID = "way"

// MachineID returns a stable device name derived from the machine ID,
// falling back to the host name.
func MachineID() string {
	id, err := machineid.ProtectedID(appID)
	if err == nil && len(id) >= 12 {
		return appID + "-" + id[:12]
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return appID
}
