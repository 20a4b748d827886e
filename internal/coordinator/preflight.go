package coordinator

import (
	"fmt"

	"github.com/eventlog-tools/distqual/internal/platform/env"
)

// Preflight verifies the home-directory environment variables the cluster
// runtime and storage gateway need. A missing variable is a fatal startup
// error.
func Preflight(required []string) error {
	for _, key := range required {
		if _, err := env.Require(key); err != nil {
			return fmt.Errorf("preflight: %w", err)
		}
	}
	return nil
}
