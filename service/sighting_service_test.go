package service

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"cryptid-vote-backend/models"
	"cryptid-vote-backend/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() SightingForm {
	return SightingForm{
		CryptidName: "  Mothman  ",
		PlatformURL: "https://x.com/someone/status/1",
		Lore:        "Spotted near the bridge",
	}
}

func TestSightingFormValidate(t *testing.T) {
	f := validForm()
	require.NoError(t, f.Validate())
	assert.Equal(t, "Mothman", f.CryptidName)
	assert.Equal(t, models.PlatformX, f.Platform)

	cases := map[string]func(*SightingForm){
		"missing name":      func(f *SightingForm) { f.CryptidName = "   " },
		"missing lore":      func(f *SightingForm) { f.Lore = "" },
		"bad platform":      func(f *SightingForm) { f.Platform = "myspace" },
		"relative url":      func(f *SightingForm) { f.PlatformURL = "/status/1" },
		"ftp url":           func(f *SightingForm) { f.PlatformURL = "ftp://example.com/x" },
		"invalid image url": func(f *SightingForm) { f.ImageURL = "not a url" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := validForm()
			mutate(&f)
			err := f.Validate()
			assert.ErrorIs(t, err, ErrInvalidSighting)
			assert.Equal(t, err.Error(), UserMessage(err))
		})
	}
}

func TestSightingSubmitDisabled(t *testing.T) {
	gw := newMemGateway()
	w := signingWallet("W")
	_, err := NewSightingService(gw, false, discardLogger()).Submit(context.Background(), w, validForm())
	assert.ErrorIs(t, err, ErrFeatureDisabled)
	assert.Equal(t, "Sighting reports are coming soon", UserMessage(err))
	assert.Zero(t, w.calls.Load())
}

func TestSightingSubmit(t *testing.T) {
	gw := newMemGateway()
	w := signingWallet("Wallet1")
	svc := NewSightingService(gw, true, discardLogger())

	form := validForm()
	form.ImageURL = "https://img.example.com/mothman.png"
	sub, err := svc.Submit(context.Background(), w, form)
	require.NoError(t, err)

	assert.Equal(t, models.SubmissionPending, sub.Status)
	assert.Equal(t, "Wallet1", sub.Wallet)
	assert.Equal(t, "Mothman", sub.CryptidName)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("sig")), sub.Signature)
	require.NotNil(t, sub.ImageURL)
	assert.Equal(t, form.ImageURL, *sub.ImageURL)
	require.Len(t, w.messages, 1)
	assert.Contains(t, w.messages[0], "Report cryptid sighting: Mothman at ")
}

func TestSightingSubmitErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("no wallet", func(t *testing.T) {
		_, err := NewSightingService(newMemGateway(), true, discardLogger()).Submit(ctx, wallet.Disconnected{}, validForm())
		assert.ErrorIs(t, err, ErrWalletNotConnected)
	})
	t.Run("rejected", func(t *testing.T) {
		gw := newMemGateway()
		w := &fakeWallet{address: "W", sign: func(ctx context.Context, msg []byte) ([]byte, error) {
			return nil, wallet.ErrUserRejected
		}}
		_, err := NewSightingService(gw, true, discardLogger()).Submit(ctx, w, validForm())
		assert.ErrorIs(t, err, ErrSignatureCancelled)
		assert.Empty(t, gw.submissions)
	})
	t.Run("insert failure", func(t *testing.T) {
		gw := newMemGateway()
		gw.insertErr = errors.New("boom")
		_, err := NewSightingService(gw, true, discardLogger()).Submit(ctx, signingWallet("W"), validForm())
		assert.ErrorIs(t, err, ErrSightingFailed)
		assert.Equal(t, "Failed to submit sighting. Please try again.", UserMessage(err))
	})
	t.Run("invalid form skips signing", func(t *testing.T) {
		w := signingWallet("W")
		form := validForm()
		form.Lore = ""
		_, err := NewSightingService(newMemGateway(), true, discardLogger()).Submit(ctx, w, form)
		assert.ErrorIs(t, err, ErrInvalidSighting)
		assert.Zero(t, w.calls.Load())
	})
}
