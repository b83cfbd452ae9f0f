package instance

import "os"

const defaultID = "worker-0"

// GetID returns the process instance identifier used to tag logs and lock
// owners. WORKER_ID wins over the platform-provided DYNO and HOSTNAME.
func GetID() string {
	for _, key := range []string{"WORKER_ID", "DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return defaultID
}
