package main

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"github.com/senadmustafi/Timing-attack/internal/target"
)

var serveAddr string

// serveCmd runs the vulnerable target over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the vulnerable login check over HTTP",
	Long: `Serves POST /login with form fields "account" and "password", answering 200
when the password matches and 401 otherwise. The comparison exits at the
first wrong character.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		v, err := newVerifier(ctx, cfg)
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s%s\n", ln.Addr(), target.LoginPath)
		return target.Serve(ctx, ln, target.NewHandler(v, logger), logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}
