package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	c := &domain.Cursor{GeneratedAt: time.Date(2025, time.October, 27, 20, 0, 0, 123, time.UTC), ID: "seq-1"}
	decoded, err := DecodeCursor(EncodeCursor(c))
	require.NoError(t, err)
	require.True(t, c.GeneratedAt.Equal(decoded.GeneratedAt))
	require.Equal(t, "seq-1", decoded.ID)
}

func TestDecodeCursorEmptyAndInvalid(t *testing.T) {
	c, err := DecodeCursor("  ")
	require.NoError(t, err)
	require.Nil(t, c)

	_, err = DecodeCursor("not base64!")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAfterOrdersByTimeThenID(t *testing.T) {
	at := time.Date(2025, time.October, 27, 20, 0, 0, 0, time.UTC)
	c := &domain.Cursor{GeneratedAt: at, ID: "m"}
	require.True(t, After(nil, at, "z"))
	require.True(t, After(c, at.Add(-time.Second), "z"))
	require.True(t, After(c, at, "a"))
	require.False(t, After(c, at, "m"))
	require.False(t, After(c, at.Add(time.Second), "a"))
}
