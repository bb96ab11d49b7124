package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/client"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print server counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			sig, err := client.Dial(ctx, serverURL)
			if err != nil {
				return err
			}
			defer sig.Close()

			if err := sig.Send(domain.KindStats, "", nil); err != nil {
				return err
			}
			for {
				select {
				case msg, ok := <-sig.Incoming():
					if !ok {
						return sig.Err()
					}
					if msg.Type != domain.KindStats {
						continue
					}
					var stats domain.Stats
					if err := json.Unmarshal(msg.Payload, &stats); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "online: %d\nwaiting: %d\nactive sessions: %d\n",
						stats.Online, stats.Waiting, stats.Sessions)
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		},
	}
}
