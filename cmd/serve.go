package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/histread/internal/server"
	"github.com/abhisek/histread/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve reading sessions over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = os.Getenv("HISTREAD_ADDR")
		}
		if addr == "" {
			addr = ":8080"
		}

		busy, _ := cmd.Flags().GetString("busy")
		lock := session.LockPolicy(busy)
		switch lock {
		case session.LockWait, session.LockFailFast:
		default:
			return fmt.Errorf("invalid --busy %q: must be %s or %s", busy, session.LockWait, session.LockFailFast)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		rt, err := openRuntime(cmd, runtimeOptions{Lock: lock})
		if err != nil {
			return err
		}
		defer rt.Close()

		srv := server.New(server.Options{
			Engine:  rt.engine,
			Catalog: rt.catalog,
			Metrics: rt.metrics.Handler(),
			Logger:  rt.log,
		})
		rt.log.Info("listening", zap.String("addr", addr))
		return srv.Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides HISTREAD_ADDR, default :8080)")
	serveCmd.Flags().String("busy", string(session.LockFailFast),
		"What a request does when its session is busy: wait or fail-fast (409)")
	addEngineFlags(serveCmd)
}
