package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/donor-search/internal/domain"
)

func TestParseRoundMessage(t *testing.T) {
	body := []byte(`{
		"seekerId": "s1",
		"requestPostId": "r1",
		"createdAt": 1700000000,
		"currentNeighborSearchLevel": 2,
		"remainingGeohashesToProcess": ["WH0R35", "wh0r36"],
		"notifiedEligibleDonors": {"d1": {"locationId": "l1", "distance": 1.25}},
		"potentialDonorsLeftToNotify": 3,
		"retryCount": 1,
		"reinstatedRetryCount": 0,
		"targetedExecutionTime": 1700003600
	}`)

	m, err := ParseRoundMessage(body)
	require.NoError(t, err)
	assert.Equal(t, domain.SearchKey{SeekerID: "s1", RequestID: "r1", CreatedAt: 1700000000}, m.Key())
	assert.Equal(t, []string{"wh0r35", "wh0r36"}, m.RemainingGeohashesToProcess)
	assert.Equal(t, 1.25, m.NotifiedEligibleDonors["d1"].Distance)
	require.NotNil(t, m.PotentialDonorsLeftToNotify)
	assert.Equal(t, 3, *m.PotentialDonorsLeftToNotify)

	wake, ok := m.WakeTime()
	assert.True(t, ok)
	assert.Equal(t, int64(1700003600), wake.Unix())
}

func TestParseRoundMessage_Invalid(t *testing.T) {
	for name, body := range map[string]string{
		"empty":            "  ",
		"not json":         "{",
		"missing seeker":   `{"requestPostId":"r","createdAt":1}`,
		"missing request":  `{"seekerId":"s","createdAt":1}`,
		"missing created":  `{"seekerId":"s","requestPostId":"r"}`,
		"negative level":   `{"seekerId":"s","requestPostId":"r","createdAt":1,"currentNeighborSearchLevel":-1}`,
		"negative retries": `{"seekerId":"s","requestPostId":"r","createdAt":1,"retryCount":-2}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRoundMessage([]byte(body))
			require.Error(t, err)
			assert.True(t, IsOperational(err))
		})
	}
}

func TestEncodeRoundMessage_OmitsUnsetOptionals(t *testing.T) {
	b, err := EncodeRoundMessage(&domain.SearchRoundMessage{SeekerID: "s", RequestID: "r", CreatedAt: 1})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "targetedExecutionTime")
	assert.NotContains(t, string(b), "potentialDonorsLeftToNotify")
	assert.NotContains(t, string(b), "notifiedEligibleDonors")
}
