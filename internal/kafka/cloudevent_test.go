package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloudEvent_RoundTrip(t *testing.T) {
	type payload struct {
		AcknowledgementID string `json:"acknowledgement_id"`
		Status            string `json:"status"`
	}

	ce, err := NewCloudEvent("service-booking", "booking.status.changed", payload{
		AcknowledgementID: "MS-ABC234",
		Status:            "APPROVED",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, ce.ID)
	assert.Equal(t, "service-booking", ce.Source)
	assert.Equal(t, "booking.status.changed", ce.Type)
	assert.False(t, ce.Time.IsZero())

	raw, err := json.Marshal(ce)
	require.NoError(t, err)

	parsed, err := ParseCloudEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, ce.ID, parsed.ID)

	var data payload
	require.NoError(t, parsed.ParseData(&data))
	assert.Equal(t, "MS-ABC234", data.AcknowledgementID)
	assert.Equal(t, "APPROVED", data.Status)
}

func TestParseCloudEvent_Malformed(t *testing.T) {
	_, err := ParseCloudEvent([]byte("not json"))
	assert.Error(t, err)
}

func TestNewCloudEvent_UnmarshalableData(t *testing.T) {
	_, err := NewCloudEvent("service-booking", "x", make(chan int))
	assert.Error(t, err)
}
