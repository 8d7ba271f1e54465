package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"dissent/internal/crypto"
	"dissent/internal/domain"
)

// rotate <peer>: replace the local key pair.
func rotateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate <peer>",
		Short: "Replace the local ratchet key pair",
		Long: "Replace the local key pair. The session advances once the peer has\n" +
			"installed the printed key and this side has installed the peer's key.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := c.wire.Sessions.RotateLocalKey(cmd.Context(), domain.PeerID(args[0]))
			if err != nil {
				return err
			}
			enc, err := publicB64(pub)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Local key: %s\n", enc)
			fmt.Fprintf(out, "Fingerprint: %s\n", crypto.FingerprintX25519(pub))
			return nil
		},
	}
}

// install-key <peer> <spki-b64>: run a receive-side ratchet step.
func installKeyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "install-key <peer> <spki-b64>",
		Short: "Apply a peer's public key to the session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			der, err := crypto.FromB64(args[1])
			if err != nil {
				return fmt.Errorf("peer key: %w", err)
			}
			pub, err := crypto.ParsePublicDER(der)
			if err != nil {
				return fmt.Errorf("peer key: %w", err)
			}

			rec, err := c.wire.Sessions.InstallPeerKey(cmd.Context(), domain.PeerID(args[0]), pub)
			if err != nil {
				return err
			}
			defer rec.Wipe()
			fmt.Fprintf(cmd.OutOrStdout(), "Installed %s; epoch %d.\n", crypto.FingerprintX25519(pub), rec.Epoch)
			return nil
		},
	}
}
