package webapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func sign(payload string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestParseWebhook_InvoicePaid(t *testing.T) {
	g := NewStripeGateway("sk_test", testSecret)
	payload := `{"id":"evt_1","object":"event","type":"invoice.payment_succeeded","data":{"object":{"id":"in_1","object":"invoice","subscription":"sub_1"}}}`

	event, err := g.ParseWebhook([]byte(payload), sign(payload, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "invoice.payment_succeeded", event.Type)
	assert.Equal(t, "sub_1", event.SubscriptionID)
}

func TestParseWebhook_SubscriptionUpdated(t *testing.T) {
	g := NewStripeGateway("sk_test", testSecret)
	payload := `{"id":"evt_2","object":"event","type":"customer.subscription.updated","data":{"object":{"id":"sub_1","object":"subscription","status":"past_due","current_period_end":1719792000}}}`

	event, err := g.ParseWebhook([]byte(payload), sign(payload, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "sub_1", event.SubscriptionID)
	assert.Equal(t, "past_due", event.Status)
	assert.Equal(t, time.Unix(1719792000, 0).UTC(), event.CurrentPeriodEnd)
}

func TestParseWebhook_BadSignature(t *testing.T) {
	g := NewStripeGateway("sk_test", testSecret)
	payload := `{"id":"evt_3","object":"event","type":"invoice.payment_succeeded","data":{"object":{}}}`

	_, err := g.ParseWebhook([]byte(payload), "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = g.ParseWebhook([]byte(payload), sign(payload+" ", time.Now()))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestPeriodEnd(t *testing.T) {
	assert.True(t, periodEnd(0).IsZero())
	assert.Equal(t, 2024, periodEnd(1719792000).Year())
}
