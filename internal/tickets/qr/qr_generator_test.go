package qr

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-events/internal/models"
)

func TestSealOpen(t *testing.T) {
	g, err := NewQRGenerator("door-secret")
	require.NoError(t, err)

	ref := Reference{TicketID: "6f1c2f3e-8d6b-4f0a-9a55-5b0f0f1d2c3b", EventID: 42}
	value, err := g.Seal(ref)
	require.NoError(t, err)

	again, err := g.Seal(ref)
	require.NoError(t, err)
	assert.Equal(t, value, again)

	got, err := g.Open(value)
	require.NoError(t, err)
	assert.Equal(t, ref, *got)

	other, err := g.Seal(Reference{TicketID: ref.TicketID, EventID: 43})
	require.NoError(t, err)
	assert.NotEqual(t, value, other)
}

func TestOpenRejectsForeignAndTamperedValues(t *testing.T) {
	g, err := NewQRGenerator("door-secret")
	require.NoError(t, err)
	foreign, err := NewQRGenerator("another-secret")
	require.NoError(t, err)

	value, err := foreign.Seal(Reference{TicketID: "abc", EventID: 1})
	require.NoError(t, err)

	for _, v := range []string{value, "", "not base64 !", "AAAA"} {
		_, err := g.Open(v)
		assert.ErrorIs(t, err, models.ErrValidation, v)
		assert.Equal(t, "INVALID_QR_CODE", models.ErrorCode(err), v)
	}

	own, err := g.Seal(Reference{TicketID: "abc", EventID: 1})
	require.NoError(t, err)
	tampered := []byte(own)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}
	_, err = g.Open(string(tampered))
	assert.Equal(t, "INVALID_QR_CODE", models.ErrorCode(err))
}

func TestNewQRGeneratorRequiresSecret(t *testing.T) {
	_, err := NewQRGenerator("")
	assert.Error(t, err)
}

func TestPNG(t *testing.T) {
	g, err := NewQRGenerator("door-secret")
	require.NoError(t, err)

	data, err := g.PNG("hello")
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
}
