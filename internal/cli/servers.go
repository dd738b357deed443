package cli

import (
	"github.com/spf13/cobra"
)

func newServersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Server browser commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List live game servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			var servers []Server
			if err := client.Get("/client/servers", nil, &servers); err != nil {
				return err
			}

			newCmdOutput(cmd).Print(servers)
			return nil
		},
	})

	return cmd
}
