package loader

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
)

// JSONKey serializes composite keys into a canonical form. Struct keys
// marshal with a stable field order, so structurally equal keys collide
// predictably and differing keys never do. The serialized form is digested to
// keep cache keys compact.
func JSONKey[K any](key K) string {
	raw, err := json.Marshal(key)
	if err != nil {
		// Fall back to the fmt rendering; still deterministic for structs.
		return fmt.Sprintf("%+v", key)
	}
	return strconv.FormatUint(xxhash.Sum64(raw), 16)
}
