package recharge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ID
		wantErr bool
	}{
		{"number", `123`, "123", false},
		{"large number", `98765432101234`, "98765432101234", false},
		{"string", `"sub_55"`, "sub_55", false},
		{"numeric string", `"55"`, "55", false},
		{"null", `null`, "", false},
		{"null text", `"null"`, "", false},
		{"undefined text", `"undefined"`, "", false},
		{"bool", `true`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			err := json.Unmarshal([]byte(tt.input), &id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestID_Ptr(t *testing.T) {
	assert.Nil(t, ID("").Ptr())
	assert.Equal(t, "9", *ID("9").Ptr())
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2024-01-02T10:11:12", time.Date(2024, 1, 2, 10, 11, 12, 0, time.UTC)},
		{"2024-01-02T10:11:12Z", time.Date(2024, 1, 2, 10, 11, 12, 0, time.UTC)},
		{"2024-01-02T12:11:12+02:00", time.Date(2024, 1, 2, 10, 11, 12, 0, time.UTC)},
		{"2024-01-02 10:11:12", time.Date(2024, 1, 2, 10, 11, 12, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}

	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	var payload struct {
		Set    Timestamp `json:"set"`
		Null   Timestamp `json:"null"`
		Empty  Timestamp `json:"empty"`
		Absent Timestamp `json:"absent"`
	}
	err := json.Unmarshal([]byte(`{"set":"2024-01-02T10:00:00","null":null,"empty":""}`), &payload)
	require.NoError(t, err)

	assert.NotNil(t, payload.Set.Ptr())
	assert.Nil(t, payload.Null.Ptr())
	assert.Nil(t, payload.Empty.Ptr())
	assert.Nil(t, payload.Absent.Ptr())
}

func TestQuantity_UnmarshalJSON(t *testing.T) {
	var payload struct {
		Number *Quantity `json:"number"`
		Text   *Quantity `json:"text"`
		Null   *Quantity `json:"null"`
		Zero   *Quantity `json:"zero"`
	}
	err := json.Unmarshal([]byte(`{"number":2,"text":"3","null":null,"zero":0}`), &payload)
	require.NoError(t, err)

	assert.Equal(t, 2, *quantityPtr(payload.Number))
	assert.Equal(t, 3, *quantityPtr(payload.Text))
	assert.Nil(t, quantityPtr(payload.Null))
	assert.Nil(t, quantityPtr(payload.Zero))
}
