package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web interface",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		addr, _ := cmd.Flags().GetString("addr")

		a, err := newApp("serve", args)
		if err != nil {
			return err
		}
		defer closeApp(a, &err)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return a.Serve(ctx, addr, func(bound string) {
			fmt.Fprintf(cmd.ErrOrStderr(), "studydesk running at http://%s/\n", bound)
		})
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Bind address (host:port); defaults to server.listen from the config")
}
