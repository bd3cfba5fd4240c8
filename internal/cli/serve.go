package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/limbguide/internal/core"
	"github.com/valter-silva-au/limbguide/pkg/models"
)

var (
	serveGateway string
	consoleAs    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot on the configured gateway",
	Long: `Run the bot until interrupted.

The gateway defaults to bot.gateway from .limbguide.yaml:
  telegram  long-polls the Telegram Bot API (needs bot.token or LIMBGUIDE_BOT_TOKEN)
  file      reads markdown messages from <file_channel.dir>/inbox and writes replies to outbox
  console   chats on this terminal`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if GatewayReg == nil || Config == nil {
			return fmt.Errorf("gateway registry not initialized")
		}
		kind := Config.Bot.Gateway
		if serveGateway != "" {
			kind = models.GatewayKind(serveGateway)
		}
		gw, err := GatewayReg.Open(kind, Config)
		if err != nil {
			return err
		}
		return runBot(cmd.Context(), gw)
	},
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Chat with the bot on this terminal",
	Long: `Chat with the bot on this terminal.

Lines starting with / are commands (/start, /leg, /hand, /admin).
#N presses button N of the last keyboard, #payload sends a raw button
payload, "!video <file_id>" simulates a video upload, and anything else is
sent as text. Use --as to pick the handle checked against the admin list.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if OpenConsole == nil {
			return fmt.Errorf("console gateway not initialized")
		}
		gw, err := OpenConsole(consoleAs)
		if err != nil {
			return err
		}
		return runBot(cmd.Context(), gw)
	},
}

// runBot serves gw until the context is cancelled or the process receives
// an interrupt.
func runBot(ctx context.Context, gw core.Gateway) error {
	if Navigator == nil || Admin == nil {
		return fmt.Errorf("navigator not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "limbguide %s serving on %s\n", appVersion, gw.Name())
	return core.NewDispatcher(gw, Navigator, Admin, Logger).Run(ctx)
}

func init() {
	serveCmd.Flags().StringVar(&serveGateway, "gateway", "", "Gateway to serve on (telegram, file, console); overrides bot.gateway")
	consoleCmd.Flags().StringVar(&consoleAs, "as", "", "Handle to chat as (defaults to $USER)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(consoleCmd)
}
