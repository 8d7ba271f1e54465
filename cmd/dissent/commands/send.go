package commands

import (
	"github.com/spf13/cobra"

	"dissent/internal/domain"
	"dissent/internal/protocol/ratchet"
)

// send <peer> <message>: encrypt a message for <peer>.
func sendCmd(c *cli) *cobra.Command {
	var rotate bool
	cmd := &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt a message and print the packet as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer := domain.PeerID(args[0])
			msg := []byte(args[1])

			var (
				pkt domain.Packet
				err error
			)
			if rotate {
				pkt, err = c.wire.Sessions.SendRotating(cmd.Context(), peer, msg)
			} else {
				pkt, err = c.wire.Sessions.Send(cmd.Context(), peer, msg)
			}
			if err != nil {
				return err
			}

			b, err := ratchet.MarshalPacket(pkt)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	cmd.Flags().BoolVar(&rotate, "rotate", false, "rotate the local key and advertise it in this packet")
	return cmd
}
