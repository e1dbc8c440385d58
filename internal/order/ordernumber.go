package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const orderNumberPrefix = "KLTZ"

// NewOrderNumber builds a customer-facing order number: the brand prefix,
// the last eight digits of the submission time in milliseconds, and a random
// suffix. The time component keeps numbers roughly sortable for support
// staff; the UUID-derived suffix is what actually prevents collisions under
// concurrent checkouts, and the database enforces uniqueness as a backstop.
func NewOrderNumber(now time.Time) string {
	millis := now.UnixMilli() % 100_000_000
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s%08d%s", orderNumberPrefix, millis, suffix)
}
