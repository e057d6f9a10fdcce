package checkout

import "time"

// The state machine is pure: it mutates the in-memory Order and reports
// side effects for the caller (repository) to apply. It never touches I/O.

// Effects tells the enclosing transaction what must happen alongside the
// status write.
type Effects struct {
	RestoreStock  bool
	RequestRefund bool
}

func appendHistory(o *Order, status, note string, at time.Time) {
	o.History = append(o.History, StatusEntry{Status: status, Note: note, CreatedAt: at})
	o.UpdatedAt = at
}

// TransitionOrder moves orderStatus and appends the audit entry. The first
// move into CANCELLED demands stock restoration exactly once; StockRestored
// guards against a second restore if cancellation is replayed.
func TransitionOrder(o *Order, to OrderStatus, note string, at time.Time) (Effects, error) {
	var fx Effects
	if !CanTransitionOrder(o.OrderStatus, to) {
		return fx, &InvalidTransitionError{From: string(o.OrderStatus), To: string(to)}
	}
	o.OrderStatus = to
	appendHistory(o, string(to), note, at)

	if to == OrderCancelled && !o.StockRestored {
		o.StockRestored = true
		fx.RestoreStock = true
		if o.PaymentStatus == PaymentPaid {
			fx.RequestRefund = true
		}
	}
	return fx, nil
}

// TransitionPayment moves paymentStatus. Payment entries carry a PAYMENT_
// prefix in the audit trail so both machines share one history.
func TransitionPayment(o *Order, to PaymentStatus, note string, at time.Time) error {
	if !CanTransitionPayment(o.PaymentStatus, to) {
		return &InvalidTransitionError{From: string(o.PaymentStatus), To: string(to)}
	}
	o.PaymentStatus = to
	appendHistory(o, "PAYMENT_"+string(to), note, at)
	return nil
}

// Note appends an audit entry without moving either status.
func Note(o *Order, note string, at time.Time) {
	appendHistory(o, string(o.OrderStatus), note, at)
}

// Cancel drives both machines for an explicit or payment-driven
// cancellation. The payment leg is best-effort: a COD order sitting at
// PENDING payment moves to CANCELLED, a PAID order is left PAID until the
// refund settles.
func Cancel(o *Order, note string, at time.Time) (Effects, error) {
	fx, err := TransitionOrder(o, OrderCancelled, note, at)
	if err != nil {
		return fx, err
	}
	if CanTransitionPayment(o.PaymentStatus, PaymentCancelled) {
		_ = TransitionPayment(o, PaymentCancelled, "payment voided on cancel", at)
	}
	return fx, nil
}

// MarkPaid applies a successful settlement: payment PAID, order PROCESSING.
// Already-paid orders are a no-op so replayed notifications cannot stack
// history entries.
func MarkPaid(o *Order, note string, at time.Time) (bool, error) {
	if o.PaymentStatus == PaymentPaid {
		return false, nil
	}
	if err := TransitionPayment(o, PaymentPaid, note, at); err != nil {
		return false, err
	}
	if o.OrderStatus == OrderPending {
		if _, err := TransitionOrder(o, OrderProcessing, "payment settled", at); err != nil {
			return false, err
		}
	}
	return true, nil
}
