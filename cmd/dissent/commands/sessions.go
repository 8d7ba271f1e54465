package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dissent/internal/crypto"
	"dissent/internal/domain"
)

// list: print every peer with a session.
func listCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List peers with a stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			peers, err := c.wire.Sessions.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, p := range peers {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

// status <peer>: print the non-secret parts of a session.
func statusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status <peer>",
		Short: "Show the non-secret state of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := c.wire.Sessions.Get(cmd.Context(), domain.PeerID(args[0]))
			if err != nil {
				return err
			}
			defer rec.Wipe()

			pub, err := publicB64(rec.LocalDH.Public)
			if err != nil {
				return err
			}
			peerKey := "(none)"
			if rec.PeerDHPublic != nil {
				peerKey = crypto.FingerprintX25519(*rec.PeerDHPublic).String()
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Peer:       %s\n", args[0])
			fmt.Fprintf(out, "Session:    %s\n", rec.SessionID)
			fmt.Fprintf(out, "Direction:  %s\n", rec.Direction)
			fmt.Fprintf(out, "Epoch:      %d\n", rec.Epoch)
			fmt.Fprintf(out, "Sent:       %d\n", rec.Send.Seq)
			fmt.Fprintf(out, "Received:   %d\n", rec.Recv.Seq)
			fmt.Fprintf(out, "Local key:  %s (%s)\n", pub, crypto.FingerprintX25519(rec.LocalDH.Public))
			fmt.Fprintf(out, "Peer key:   %s\n", peerKey)
			fmt.Fprintf(out, "Updated:    %s\n", rec.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}
}

// delete <peer>: remove a session.
func deleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <peer>",
		Short: "Remove a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.wire.Sessions.Delete(cmd.Context(), domain.PeerID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted session with %s.\n", args[0])
			return nil
		},
	}
}
