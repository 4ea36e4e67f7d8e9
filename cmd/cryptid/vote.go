package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cryptid-vote-backend/models"
	"cryptid-vote-backend/service"
	"cryptid-vote-backend/state"
	"cryptid-vote-backend/wallet"

	"github.com/spf13/cobra"
)

const voteLatchExpiry = 2 * time.Minute

// promptApprover asks on out before every signature and reads y/N from in.
// End of input counts as no.
func promptApprover(in io.Reader, out io.Writer) wallet.Approver {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, message []byte) (bool, error) {
		fmt.Fprintf(out, "Sign message %q? [y/N]: ", message)
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

func (a *app) loadWallet() (*wallet.Keypair, error) {
	kp, err := wallet.LoadKeypair(a.cfg.WalletKeypair, promptApprover(a.in, a.out))
	if err != nil {
		a.log.Debug("wallet load failed", "path", a.cfg.WalletKeypair, "error", err)
		return nil, errors.New(service.UserMessage(service.ErrWalletNotConnected))
	}
	return kp, nil
}

func voteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vote <card-id>",
		Short: "Cast a signed vote for a cryptid in the active event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kp, err := a.loadWallet()
			if err != nil {
				return err
			}

			gw := a.gateway()
			ctrl := state.NewController(gw, a.log)
			if err := ctrl.SetWallet(ctx, kp); err != nil {
				a.log.Warn("could not load previous votes", "error", err)
			}
			if err := ctrl.Start(ctx); err != nil {
				a.log.Warn("partial data", "error", err)
			}

			event := ctrl.ActiveEvent()
			if event == nil {
				return errors.New("no active voting event")
			}
			cardID := args[0]
			snap := ctrl.Snapshot()
			if len(snap.Cryptids) > 0 {
				c, ok := findCryptid(snap.Cryptids, cardID)
				if !ok {
					return fmt.Errorf("unknown cryptid %q", cardID)
				}
				cardID = c.ID
			}
			if ctrl.HasVoted(cardID) {
				return errors.New(service.UserMessage(service.ErrAlreadyVoted))
			}

			var opts []service.VoteOption
			if latch, rdb := a.redisLatch(ctx); latch != nil {
				defer rdb.Close()
				opts = append(opts, service.WithLatch(latch))
			}
			svc := service.NewVoteService(gw, a.log, opts...)
			if err := svc.CastVote(ctx, kp, cardID, event.ID); err != nil {
				a.log.Debug("vote failed", "card", cardID, "event", event.ID, "error", err)
				return errors.New(service.UserMessage(err))
			}

			if err := ctrl.OnVoteSucceeded(ctx); err != nil {
				a.log.Warn("refresh after vote failed", "error", err)
			}
			fmt.Fprintf(a.out, "\nVote recorded. %s now has %d vote(s)\n", cardID, ctrl.VoteCount(cardID))
			return nil
		},
	}
}

func reportSightingCommand(a *app) *cobra.Command {
	var (
		form     service.SightingForm
		platform string
	)
	cmd := &cobra.Command{
		Use:   "report-sighting",
		Short: "Submit a signed cryptid sighting for moderation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := service.NewSightingService(a.gateway(), a.cfg.SightingsEnabled, a.log)
			if !a.cfg.SightingsEnabled {
				return errors.New(service.UserMessage(service.ErrFeatureDisabled))
			}
			kp, err := a.loadWallet()
			if err != nil {
				return err
			}

			form.Platform = models.Platform(platform)
			sub, err := svc.Submit(cmd.Context(), kp, form)
			if err != nil {
				a.log.Debug("sighting failed", "error", err)
				return errors.New(service.UserMessage(err))
			}
			fmt.Fprintf(a.out, "\nSighting submitted for review (%s, status %s)\n", sub.ID, sub.Status)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&form.CryptidName, "name", "", "cryptid name (required)")
	flags.StringVar(&platform, "platform", string(models.PlatformX), "X, instagram, youtube or tiktok")
	flags.StringVar(&form.PlatformURL, "url", "", "link to the post (required)")
	flags.StringVar(&form.Lore, "lore", "", "what was seen (required)")
	flags.StringVar(&form.ImageURL, "image", "", "optional image url")
	return cmd
}
