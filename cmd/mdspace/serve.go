package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/mdspace/internal/server"
)

func (a *app) serveCmd() *cobra.Command {
	var dir, listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve workspace summaries, heat maps and line profiles over HTTP",
		Long: `serve exposes every .mdspace file under --dir read-only:

  /api/files            list workspace files
  /api/info?file=       header and totals of one file
  /chart/heatmap?file=  2-D slice as an HTML heat map (x, y, fixed, norm)
  /chart/line?file=     line profile image (start, end, norm, boundaries, format)
  /metrics              request counters`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := server.New(server.Config{Address: listen, DataDir: dir})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return s.Start(ctx)
		},
	}
	f := cmd.Flags()
	f.StringVar(&dir, "dir", ".", "directory of workspace files to serve")
	f.StringVar(&listen, "listen", "localhost:8086", "HTTP listen address")
	return cmd
}
