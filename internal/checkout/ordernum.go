package checkout

import (
	"fmt"
	"time"
)

// Order numbers look like ORD-20250114-0042: a per-day sequence, zero
// padded to 4 digits. The sequence comes from an atomic counter row, never
// from counting existing orders.

func DayKey(t time.Time) string {
	return t.UTC().Format("20060102")
}

func FormatOrderNumber(day string, seq int) string {
	return fmt.Sprintf("ORD-%s-%04d", day, seq)
}
