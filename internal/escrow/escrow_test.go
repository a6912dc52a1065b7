package escrow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidates(t *testing.T) {
	base := NewParams{ID: "id", Code: "ESC-2026-010", ProjectID: "p", BidID: "b", HomeownerID: "h", Amount: 10, Currency: "VND"}

	e, err := New(base, testNow)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, e.Status())
	assert.Equal(t, int64(10), e.Amount())
	assert.Zero(t, e.ReleasedAmount())
	assert.Equal(t, testNow, e.CreatedAt)

	mutations := []func(p *NewParams){
		func(p *NewParams) { p.ID = "" },
		func(p *NewParams) { p.ProjectID = " " },
		func(p *NewParams) { p.BidID = "" },
		func(p *NewParams) { p.HomeownerID = "" },
		func(p *NewParams) { p.Currency = "" },
		func(p *NewParams) { p.Code = "ESC-26-1" },
		func(p *NewParams) { p.Amount = 0 },
	}
	for i, mutate := range mutations {
		p := base
		mutate(&p)
		_, err := New(p, testNow)
		assert.True(t, IsKind(err, KindInvalidInput), "mutation %d", i)
	}
}

func TestConfirmAndCancel(t *testing.T) {
	e := newTestEscrow(t, 100)
	require.NoError(t, e.Confirm("usr_admin", testNow))
	assert.Equal(t, StatusHeld, e.Status())
	assert.Equal(t, "usr_admin", e.ConfirmedBy)
	assert.True(t, IsKind(e.Confirm("usr_admin", testNow), KindInvalidStatusTransition))
	assert.True(t, IsKind(e.Cancel("usr_admin", testNow), KindInvalidStatusTransition))

	c := newTestEscrow(t, 100)
	require.NoError(t, c.Cancel("system", testNow))
	assert.Equal(t, StatusCancelled, c.Status())
	assert.True(t, c.Status().Terminal())
	assert.True(t, IsKind(c.Confirm("usr_admin", testNow), KindInvalidStatusTransition))
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	e := heldEscrow(t, 40_000_000)
	require.NoError(t, e.Release(1_000, "usr_admin", testNow))
	e.Version = 3

	restored, err := Restore(e.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, e, restored)
}

func TestRestoreRejectsBrokenRows(t *testing.T) {
	s := heldEscrow(t, 100).Snapshot()

	over := s
	over.ReleasedAmount = 101
	_, err := Restore(over)
	assert.Error(t, err)

	negative := s
	negative.ReleasedAmount = -1
	_, err = Restore(negative)
	assert.Error(t, err)

	unknown := s
	unknown.Status = Status(0)
	_, err = Restore(unknown)
	assert.Error(t, err)
}

func TestCodeFormat(t *testing.T) {
	code, err := FormatCode(2026, 7)
	require.NoError(t, err)
	assert.Equal(t, "ESC-2026-007", code)

	code, err = FormatCode(2026, 999)
	require.NoError(t, err)
	assert.Equal(t, "ESC-2026-999", code)

	for _, seq := range []int{0, 1000} {
		_, err := FormatCode(2026, seq)
		assert.True(t, IsKind(err, KindInvalidInput))
	}
	_, err = FormatCode(99, 1)
	assert.Error(t, err)

	year, seq, err := ParseCode("ESC-2025-042")
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 42, seq)

	for _, bad := range []string{"ESC-2025-000", "ESC-2025-42", "esc-2025-042", "V1StGXR8_Z5jdHi6B-myT", ""} {
		assert.False(t, IsCode(bad), bad)
	}
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("confirm: %w", NotFound("escrow", "ESC-2026-001"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "ESC-2026-001", MetadataOf(err)["ref"])

	cause := errors.New("version mismatch")
	conflict := Conflict("escrow changed concurrently", cause)
	assert.True(t, errors.Is(conflict, cause))
	assert.True(t, errors.Is(conflict, ErrConflict))
	assert.Contains(t, conflict.Error(), "version mismatch")

	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.Nil(t, MetadataOf(errors.New("boom")))
	assert.True(t, errors.Is(SettingsNotFound(nil), ErrSettingsNotFound))
}
