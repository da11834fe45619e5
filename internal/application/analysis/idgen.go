package analysis

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "github.com/statreport/statreport/internal/domain/analysis"
)

// IDGenerator issues analysis ids.
type IDGenerator func(now time.Time) domain.ID

// NewID returns the base36 millisecond timestamp followed by a random
// 12 hex digit suffix, e.g. "m1x2k3p4-3f9a0c1d2e4b".
func NewID(now time.Time) domain.ID {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return domain.ID(strconv.FormatInt(now.UnixMilli(), 36) + "-" + suffix)
}
