package cli

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func newServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Game server commands",
	}

	cmd.AddCommand(newHeartbeatCmd())

	return cmd
}

func newHeartbeatCmd() *cobra.Command {
	var id string
	var players int

	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Send a heartbeat for a registered game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Envelope
			query := url.Values{"id": {id}, "playerCount": {strconv.Itoa(players)}}
			if err := client.Post("/server/heartbeat", query, &result); err != nil {
				return err
			}

			newCmdOutput(cmd).Print(result)
			return result.Err()
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Game server id")
	cmd.Flags().IntVar(&players, "players", 0, "Current player count")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
