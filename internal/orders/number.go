package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const numberAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateOrderNumber returns a customer-facing order number such as
// LMN-20260301-K7P2. The suffix is random; collisions are handled by the
// unique index and a retry at the call site.
func GenerateOrderNumber(now time.Time) string {
	suffix := make([]byte, 4)
	max := big.NewInt(int64(len(numberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken;
			// fall back to a time-derived index.
			suffix[i] = numberAlphabet[int(now.UnixNano()>>uint(i*5))%len(numberAlphabet)]
			continue
		}
		suffix[i] = numberAlphabet[n.Int64()]
	}
	return fmt.Sprintf("LMN-%s-%s", now.UTC().Format("20060102"), suffix)
}
