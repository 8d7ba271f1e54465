package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"dissent/internal/crypto"
	"dissent/internal/domain"
)

// init <peer>: create a session with <peer>.
func initCmd(c *cli) *cobra.Command {
	var (
		rootB64   string
		direction string
	)
	cmd := &cobra.Command{
		Use:   "init <peer>",
		Short: "Create a session with a peer from a shared root key",
		Long: "Create a session with a peer. Both sides must use the same root key\n" +
			"and opposite directions. Without --root a random root is generated and\n" +
			"printed so it can be handed to the peer over a trusted channel.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := domain.ParseDirection(direction)
			if err != nil {
				return err
			}

			var root *domain.SymmetricKey
			generated := rootB64 == ""
			if !generated {
				raw, err := crypto.FromB64(rootB64)
				if err != nil {
					return fmt.Errorf("--root: %w", err)
				}
				defer crypto.Wipe(raw)
				var rk domain.SymmetricKey
				if len(raw) != len(rk) {
					return fmt.Errorf("--root: want %d bytes, got %d", len(rk), len(raw))
				}
				copy(rk[:], raw)
				root = &rk
			}

			rec, err := c.wire.Sessions.Initialize(cmd.Context(), domain.PeerID(args[0]), root, dir)
			if err != nil {
				return err
			}
			defer rec.Wipe()

			pub, err := publicB64(rec.LocalDH.Public)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session %s created with %s (%s).\n", rec.SessionID, args[0], rec.Direction)
			fmt.Fprintf(out, "Local key: %s\n", pub)
			fmt.Fprintf(out, "Fingerprint: %s\n", crypto.FingerprintX25519(rec.LocalDH.Public))
			if generated {
				fmt.Fprintf(out, "Root: %s\n", crypto.B64(rec.RootKey[:]))
				fmt.Fprintf(out, "Peer runs: dissent init <you> --root <root> --direction %s\n", dir.Opposite())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rootB64, "root", "", "shared 32-byte root key (base64)")
	cmd.Flags().StringVar(&direction, "direction", string(domain.MeToThem), "label of our sending chain: me->them or them->me")
	return cmd
}

func publicB64(pub domain.X25519Public) (string, error) {
	der, err := crypto.MarshalPublicDER(pub)
	if err != nil {
		return "", err
	}
	return crypto.B64(der), nil
}
