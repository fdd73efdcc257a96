package validation

import (
	"encoding/json"
	"testing"

	"eventory-payments/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, body string) dto.WebhookEnvelope {
	t.Helper()
	var env dto.WebhookEnvelope
	require.NoError(t, json.Unmarshal([]byte(body), &env))
	return env
}

func TestValidateWebhook(t *testing.T) {
	ev, errs := ValidateWebhook(decodeEnvelope(t, `{
		"id":"evt_1","type":"payment.succeeded",
		"data":{"id":"ch_1","metadata":{"eventId":"<b>e1</b>","userId":"u1","quantity":2}}
	}`))
	require.Empty(t, errs)
	assert.Equal(t, "ch_1", ev.ChargeID)

	meta, errs := ev.Metadata()
	require.Empty(t, errs)
	assert.Equal(t, &PaymentMetadata{EventID: "e1", UserID: "u1", Quantity: 2}, meta)
}

func TestValidateWebhook_Shape(t *testing.T) {
	tests := map[string]string{
		"missing id":      `{"type":"payment.succeeded","data":{"id":"ch_1"}}`,
		"missing type":    `{"id":"evt_1","data":{"id":"ch_1"}}`,
		"data not obj":    `{"id":"evt_1","type":"payment.succeeded","data":"ch_1"}`,
		"missing data":    `{"id":"evt_1","type":"payment.succeeded"}`,
		"empty data id":   `{"id":"evt_1","type":"payment.succeeded","data":{"id":""}}`,
		"numeric data id": `{"id":"evt_1","type":"payment.succeeded","data":{"id":5}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			ev, errs := ValidateWebhook(decodeEnvelope(t, body))
			assert.Nil(t, ev)
			assert.NotEmpty(t, errs)
		})
	}
}

func TestWebhookMetadata_Rejections(t *testing.T) {
	tests := map[string]string{
		"no metadata":      `{}`,
		"only tags":        `{"metadata":{"eventId":"<i></i>","userId":"u1","quantity":"1"}}`,
		"quantity text":    `{"metadata":{"eventId":"e1","userId":"u1","quantity":"two"}}`,
		"quantity too big": `{"metadata":{"eventId":"e1","userId":"u1","quantity":"11"}}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			var m map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(data), &m))
			m["id"] = "ch_1"
			ev, errs := ValidateWebhook(dto.WebhookEnvelope{ID: "evt", Type: "payment.succeeded", Data: m})
			require.Empty(t, errs)

			meta, errs := ev.Metadata()
			assert.Nil(t, meta)
			assert.NotEmpty(t, errs)
		})
	}
}

func TestParseQR(t *testing.T) {
	id := "5a4f6d1e-8a0b-4c59-9be3-2f7b7c0d1a11"

	got, ok := ParseQR(id)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	got, ok = ParseQR(TicketQR(id))
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = ParseQR("eventory:ticket:nope")
	assert.False(t, ok)
	_, ok = ParseQR("")
	assert.False(t, ok)
}
