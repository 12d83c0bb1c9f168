package utils

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GenerateID returns a prefixed, collision-resistant identifier such as
// "conn-9f1c2a7d".
func GenerateID(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s-%s", prefix, id[:8])
}
