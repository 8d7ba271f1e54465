package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"dissent/internal/crypto"
	"dissent/internal/domain"
	"dissent/internal/protocol/ratchet"
)

// recv <peer>: decrypt a packet from <peer>.
func recvCmd(c *cli) *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "recv <peer>",
		Short: "Decrypt a packet read from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if in != "" && in != "-" {
				f, err := os.Open(in)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			pkt, err := ratchet.ReadPacket(r)
			if err != nil {
				return err
			}
			pt, err := c.wire.Sessions.Receive(cmd.Context(), domain.PeerID(args[0]), pkt)
			if err != nil {
				return err
			}
			defer crypto.Wipe(pt)

			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\n", args[0], pt)
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "packet file (default stdin)")
	return cmd
}
