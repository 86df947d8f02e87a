/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"strings"

	"github.com/amasilva36/secret-santa/santa"
	"github.com/spf13/cobra"
)

// newDrawCmd runs a draw entirely offline, over names given as arguments.
func newDrawCmd(cfg *Config) *cobra.Command {
	var links bool

	cmd := &cobra.Command{
		Use:   "draw NAME...",
		Short: "Draw pairs for the given names and print them.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateDraw(); err != nil {
				return err
			}

			participants := make([]santa.Participant, len(args))
			for i, name := range args {
				participants[i] = santa.NewParticipant(name)
			}

			if err := santa.ValidateRoster(participants, cfg.minParticipants); err != nil {
				return err
			}

			m := newMetrics()

			assignments, err := newGenerator(cfg, m).Generate(participants)
			if err != nil {
				return fmt.Errorf("%w, please try again", err)
			}

			width := 0
			for _, p := range participants {
				width = max(width, len(p.Name))
			}

			out := cmd.OutOrStdout()
			for _, a := range assignments {
				fmt.Fprintf(out, "%-*s -> %s\n", width, a.Giver.Name, a.Receiver.Name)
				if links {
					fmt.Fprintf(out, "%s  %s\n", strings.Repeat(" ", width), santa.WhatsAppURL(santa.ShareMessage(a)))
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&links, "links", false, "print a WhatsApp share link under each pair")

	return cmd
}
