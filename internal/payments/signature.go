package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrBadSignature = errors.New("webhook signature mismatch")

// Signature header format (provider convention): "t=<unix>,v1=<hex hmac>"
// where the hmac covers "<unix>.<raw body>" with the webhook secret.

const SignatureTolerance = 5 * time.Minute

func computeSignature(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignPayload builds a header the verifier accepts. Used by tests and by
// the provider simulator.
func SignPayload(secret string, ts time.Time, payload []byte) string {
	unix := ts.Unix()
	return fmt.Sprintf("t=%d,v1=%s", unix, computeSignature(secret, unix, payload))
}

func VerifySignature(secret, header string, payload []byte, now time.Time) error {
	var ts int64 = -1
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return ErrBadSignature
			}
			ts = n
		case "v1":
			sigs = append(sigs, v)
		}
	}
	if ts < 0 || len(sigs) == 0 {
		return ErrBadSignature
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > SignatureTolerance || age < -SignatureTolerance {
		return ErrBadSignature
	}
	want := computeSignature(secret, ts, payload)
	for _, got := range sigs {
		if hmac.Equal([]byte(want), []byte(got)) {
			return nil
		}
	}
	return ErrBadSignature
}
