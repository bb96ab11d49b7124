package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/client"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/e2ee"
)

func chatCmd() *cobra.Command {
	var (
		mode      string
		interests []string
		name      string
		suite     string
		p2p       bool
		requeue   bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Find a partner and chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			sig, err := client.Dial(ctx, serverURL)
			if err != nil {
				return err
			}
			defer sig.Close()

			chat := client.NewChat(sig, client.Options{
				Mode:        domain.Mode(mode),
				Interests:   interests,
				Author:      name,
				Suite:       e2ee.Suite(suite),
				DataChannel: p2p,
				Requeue:     requeue,
				Log:         log,
			})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "connected as %s\n", sig.PeerID())

			runErr := make(chan error, 1)
			go func() { runErr <- chat.Run(ctx) }()
			go readInput(ctx, cmd.InOrStdin(), chat, stop, out)

			for {
				select {
				case ev := <-chat.Events():
					printEvent(out, ev)
				case err := <-runErr:
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
			}
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(domain.ModeText), "chat mode: text, audio or video")
	cmd.Flags().StringSliceVarP(&interests, "interest", "i", nil, "interest tag, repeatable")
	cmd.Flags().StringVar(&name, "name", "Anonymous", "name shown to your partner")
	cmd.Flags().StringVar(&suite, "suite", string(e2ee.SuiteP256AESGCM), "key agreement suite: p256-aesgcm or x25519-chacha20poly1305")
	cmd.Flags().BoolVar(&p2p, "p2p", false, "carry chat over a WebRTC data channel instead of the server relay")
	cmd.Flags().BoolVar(&requeue, "requeue", true, "look for a new partner when the current one leaves")
	return cmd
}

func readInput(ctx context.Context, in io.Reader, chat *client.Chat, quit func(), out io.Writer) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit":
			quit()
			return
		case "/next":
			chat.Next()
			continue
		}
		if err := chat.Say(ctx, line); err != nil {
			fmt.Fprintf(out, "! %v\n", err)
		}
	}
	quit()
}

func printEvent(out io.Writer, ev client.Event) {
	switch ev.Kind {
	case client.EventWaiting:
		fmt.Fprintln(out, "* looking for someone to talk to...")
	case client.EventMatched:
		fmt.Fprintln(out, "* matched, securing the conversation...")
	case client.EventSecured:
		fmt.Fprintln(out, "* end-to-end encrypted. say hi!")
	case client.EventMessage:
		fmt.Fprintf(out, "%s: %s\n", ev.Message.Author, ev.Message.Text)
	case client.EventEnded:
		fmt.Fprintf(out, "* your partner left (%s)\n", ev.Reason)
	case client.EventError:
		fmt.Fprintf(out, "! %v\n", ev.Err)
	}
}
