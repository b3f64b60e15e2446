package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key is a unique identifier for a cached upstream response.
type Key struct {
	// Endpoint is the upstream lookup name (e.g. "schedule", "counts").
	Endpoint string

	// Params are the lookup parameters (e.g. {"season": "2023"}).
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: harvester:endpoint:param1=val1:param2=val2
//
// Example:
//
//	harvester:schedule:gameType=W:season=2023
func (k Key) String() string {
	parts := []string{"harvester"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Params sorted for determinism
	if len(k.Params) > 0 {
		keys := make([]string, 0, len(k.Params))
		for key := range k.Params {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Params.Get(key)))
		}
	}

	return strings.Join(parts, ":")
}
