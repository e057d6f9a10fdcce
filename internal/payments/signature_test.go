package payments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignatureRoundTrip(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_1","type":"payment.succeeded"}`)
	now := time.Now()

	header := SignPayload(secret, now, payload)
	assert.NoError(t, VerifySignature(secret, header, payload, now))
}

func TestSignatureRejectsTamperedPayload(t *testing.T) {
	secret := "whsec_test"
	now := time.Now()
	header := SignPayload(secret, now, []byte(`{"amount":100}`))

	err := VerifySignature(secret, header, []byte(`{"amount":999999}`), now)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestSignatureRejectsWrongSecret(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)
	header := SignPayload("whsec_a", now, payload)
	assert.ErrorIs(t, VerifySignature("whsec_b", header, payload, now), ErrBadSignature)
}

func TestSignatureRejectsStaleTimestamp(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{}`)
	signed := time.Now().Add(-SignatureTolerance - time.Minute)

	header := SignPayload(secret, signed, payload)
	assert.ErrorIs(t, VerifySignature(secret, header, payload, time.Now()), ErrBadSignature)
}

func TestSignatureRejectsGarbageHeader(t *testing.T) {
	for _, header := range []string{"", "v1=deadbeef", "t=notanumber,v1=deadbeef", "t=123"} {
		assert.ErrorIs(t, VerifySignature("whsec_test", header, []byte(`{}`), time.Now()), ErrBadSignature, "header %q", header)
	}
}

func TestSignatureAcceptsExtraSchemes(t *testing.T) {
	// providers send older scheme versions alongside v1
	secret := "whsec_test"
	payload := []byte(`{}`)
	now := time.Now()
	header := SignPayload(secret, now, payload) + ",v0=legacy"
	assert.NoError(t, VerifySignature(secret, header, payload, now))
}
