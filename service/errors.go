package service

import (
	"errors"
)

var (
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrAlreadyVoted       = errors.New("already voted")
	ErrVoteCancelled      = errors.New("vote cancelled")
	ErrSubmissionFailed   = errors.New("vote submission failed")
	ErrVoteInProgress     = errors.New("vote already in progress")

	ErrFeatureDisabled    = errors.New("feature disabled")
	ErrInvalidSighting    = errors.New("invalid sighting report")
	ErrSignatureCancelled = errors.New("signature cancelled")
	ErrSightingFailed     = errors.New("sighting submission failed")

	ErrEventNotFound = errors.New("voting event not found")
	ErrEventClosed   = errors.New("voting event is not active")
	ErrRateLimited   = errors.New("too many votes, slow down")
)

// UserMessage turns an operation error into the short text shown to the user
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWalletNotConnected):
		return "Please connect your wallet first"
	case errors.Is(err, ErrAlreadyVoted):
		return "You have already voted. 1 Vote per Wallet"
	case errors.Is(err, ErrVoteCancelled):
		return "Vote cancelled"
	case errors.Is(err, ErrVoteInProgress):
		return "Vote already in progress"
	case errors.Is(err, ErrSignatureCancelled):
		return "Signature cancelled"
	case errors.Is(err, ErrFeatureDisabled):
		return "Sighting reports are coming soon"
	case errors.Is(err, ErrInvalidSighting):
		return err.Error()
	case errors.Is(err, ErrSightingFailed):
		return "Failed to submit sighting. Please try again."
	default:
		return "Failed to submit vote. Please try again."
	}
}
