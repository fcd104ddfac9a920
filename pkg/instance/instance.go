package instance

import "github.com/cropchain/cropchain-backend/pkg/env"

// GetID identifies the running process in logs: CROPCHAIN_INSTANCE_ID, then
// the platform dyno name, then "local".
func GetID() string {
	return env.FirstOf("local", "CROPCHAIN_INSTANCE_ID", "DYNO")
}
