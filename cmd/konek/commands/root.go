package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/VibeKonekPilipinas/vibe-konek-core/lib/logger/slogdiscard"
	"github.com/VibeKonekPilipinas/vibe-konek-core/lib/logger/slogpretty"
)

var (
	serverURL string
	verbose   bool
	log       *slog.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:           "konek",
		Short:         "Anonymous end-to-end encrypted chat",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				log = slogdiscard.NewDiscardLogger()
				return nil
			}
			opts := slogpretty.PrettyHandlerOptions{
				SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug},
			}
			log = slog.New(opts.NewPrettyHandler(os.Stderr))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "ws://127.0.0.1:9000/api/ws", "matchmaking websocket URL")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log protocol activity to stderr")

	root.AddCommand(chatCmd(), statsCmd())
	return root.Execute()
}
