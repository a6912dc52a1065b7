package escrow

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransitionTable(t *testing.T) {
	allowed := map[Status][]Status{
		StatusPending:         {StatusHeld, StatusCancelled},
		StatusHeld:            {StatusPartialReleased, StatusReleased, StatusRefunded, StatusDisputed},
		StatusPartialReleased: {StatusReleased, StatusRefunded, StatusDisputed},
		StatusDisputed:        {StatusReleased, StatusRefunded},
	}
	for _, from := range Statuses() {
		ok := map[Status]bool{}
		for _, to := range allowed[from] {
			ok[to] = true
		}
		for _, to := range Statuses() {
			err := ValidateTransition(from, to)
			if ok[to] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			require.Error(t, err, "%s -> %s", from, to)
			assert.True(t, errors.Is(err, ErrInvalidStatusTransition), "%s -> %s", from, to)
			assert.Equal(t, from.String(), MetadataOf(err)["from"])
		}
	}
}

func TestNoSelfTransitionsOrReturnToPending(t *testing.T) {
	for _, s := range Statuses() {
		assert.False(t, CanTransition(s, s), "self transition %s", s)
		assert.False(t, CanTransition(s, StatusPending), "%s -> PENDING", s)
	}
}

func TestTerminalStatuses(t *testing.T) {
	terminal := map[Status]bool{StatusReleased: true, StatusRefunded: true, StatusCancelled: true}
	for _, s := range Statuses() {
		assert.Equal(t, terminal[s], s.Terminal(), s.String())
		if terminal[s] {
			assert.Empty(t, NextStatuses(s))
		} else {
			assert.NotEmpty(t, NextStatuses(s))
		}
	}
}

func TestInvalidStatusValues(t *testing.T) {
	var zero Status
	assert.False(t, zero.Valid())
	assert.False(t, CanTransition(zero, StatusHeld))
	assert.False(t, CanTransition(StatusHeld, Status(200)))
	assert.Error(t, ValidateTransition(Status(200), StatusHeld))
	assert.Nil(t, NextStatuses(zero))
}

func TestStatusText(t *testing.T) {
	for _, s := range Statuses() {
		parsed, err := ParseStatus(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	b, err := json.Marshal(struct {
		Status Status `json:"status"`
	}{StatusPartialReleased})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"PARTIAL_RELEASED"}`, string(b))

	var v struct {
		Status Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"status":"disputed"}`), &v))
	assert.Equal(t, StatusDisputed, v.Status)

	err = json.Unmarshal([]byte(`{"status":"ON_HOLD"}`), &v)
	require.Error(t, err)

	_, err = ParseStatus("ON_HOLD")
	assert.True(t, IsKind(err, KindInvalidInput))
}
