package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloudEvent_ParseData(t *testing.T) {
	type payload struct {
		RideID string `json:"rideId"`
		Seats  int    `json:"seats"`
	}

	ce, err := NewCloudEvent("service-ride", "ride.created", payload{RideID: "r-1", Seats: 4})
	require.NoError(t, err)
	assert.Equal(t, "1.0", ce.SpecVersion)
	assert.NotEmpty(t, ce.ID)

	raw, err := json.Marshal(ce)
	require.NoError(t, err)

	parsed, err := ParseCloudEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "ride.created", parsed.Type)

	var got payload
	require.NoError(t, parsed.ParseData(&got))
	assert.Equal(t, 4, got.Seats)
}

func TestParseCloudEvent_RejectsMalformed(t *testing.T) {
	_, err := ParseCloudEvent([]byte("{not json"))
	assert.Error(t, err)

	_, err = ParseCloudEvent([]byte(`{"specversion":"1.0"}`))
	assert.Error(t, err)
}
