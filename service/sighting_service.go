package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"cryptid-vote-backend/models"
	"cryptid-vote-backend/repository"
	"cryptid-vote-backend/wallet"
)

// SightingForm is what a user fills in to report a cryptid sighting
type SightingForm struct {
	CryptidName string
	Platform    models.Platform
	PlatformURL string
	Lore        string
	ImageURL    string
}

// SightingMessage is the text signed for a sighting report
func SightingMessage(name string, at time.Time) string {
	return fmt.Sprintf("Report cryptid sighting: %s at %s", name, at.UTC().Format(isoMillis))
}

// SightingService submits wallet-signed sighting reports for moderation.
// It is off unless explicitly enabled.
type SightingService struct {
	gateway repository.Gateway
	enabled bool
	log     *slog.Logger
	now     func() time.Time
}

func NewSightingService(gateway repository.Gateway, enabled bool, log *slog.Logger) *SightingService {
	return &SightingService{gateway: gateway, enabled: enabled, log: log, now: time.Now}
}

// Validate trims the form in place and checks required fields
func (f *SightingForm) Validate() error {
	f.CryptidName = strings.TrimSpace(f.CryptidName)
	f.PlatformURL = strings.TrimSpace(f.PlatformURL)
	f.Lore = strings.TrimSpace(f.Lore)
	f.ImageURL = strings.TrimSpace(f.ImageURL)
	if f.Platform == "" {
		f.Platform = models.PlatformX
	}

	if f.CryptidName == "" || f.PlatformURL == "" || f.Lore == "" {
		return fmt.Errorf("%w: Please fill in all required fields", ErrInvalidSighting)
	}
	if !f.Platform.Valid() {
		return fmt.Errorf("%w: unsupported platform %q", ErrInvalidSighting, f.Platform)
	}
	if !validURL(f.PlatformURL) {
		return fmt.Errorf("%w: Please enter a valid URL", ErrInvalidSighting)
	}
	if f.ImageURL != "" && !validURL(f.ImageURL) {
		return fmt.Errorf("%w: Please enter a valid image URL", ErrInvalidSighting)
	}
	return nil
}

func validURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *SightingService) Submit(ctx context.Context, w wallet.Adapter, form SightingForm) (*models.CryptidSubmission, error) {
	if !s.enabled {
		return nil, ErrFeatureDisabled
	}
	if w == nil {
		return nil, ErrWalletNotConnected
	}
	address, ok := w.Address()
	if !ok || address == "" {
		return nil, ErrWalletNotConnected
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}

	signature, err := w.SignMessage(ctx, []byte(SightingMessage(form.CryptidName, s.now())))
	if err != nil {
		if wallet.IsUserRejection(err) {
			return nil, fmt.Errorf("%w: %w", ErrSignatureCancelled, err)
		}
		s.log.Error("sighting signing failed", "wallet", address, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSightingFailed, err)
	}
	if len(signature) == 0 {
		return nil, fmt.Errorf("%w: empty signature", ErrSightingFailed)
	}

	in := models.SubmissionInput{
		Wallet:      address,
		Signature:   base64.StdEncoding.EncodeToString(signature),
		CryptidName: form.CryptidName,
		Platform:    form.Platform,
		PlatformURL: form.PlatformURL,
		Lore:        form.Lore,
	}
	if form.ImageURL != "" {
		in.ImageURL = &form.ImageURL
	}

	sub, err := s.gateway.InsertSubmission(ctx, in)
	if err != nil {
		s.log.Error("sighting insert failed", "wallet", address, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSightingFailed, err)
	}
	s.log.Info("sighting submitted", "wallet", address, "submission", sub.ID)
	return sub, nil
}
