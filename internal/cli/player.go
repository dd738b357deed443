package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Player handshake commands",
	}

	cmd.AddCommand(newOriginAuthCmd())
	cmd.AddCommand(newAuthSelfCmd())
	cmd.AddCommand(newAuthServerCmd())

	return cmd
}

func newOriginAuthCmd() *cobra.Command {
	var id, proof string

	cmd := &cobra.Command{
		Use:   "origin-auth",
		Short: "Exchange an identity proof for a session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result OriginAuthResult
			query := url.Values{"id": {id}, "token": {proof}}
			if err := client.Get("/client/origin_auth", query, &result); err != nil {
				return err
			}

			newCmdOutput(cmd).Print(result)
			if err := result.Err(); err != nil {
				return err
			}
			if err := cfg.SaveToken(result.Token); err != nil {
				return fmt.Errorf("save token: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Player id")
	cmd.Flags().StringVar(&proof, "token", "", "Identity proof token")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func newAuthSelfCmd() *cobra.Command {
	var id, token string

	cmd := &cobra.Command{
		Use:   "auth-self",
		Short: "Authorize hosting a local game",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionToken, err := resolveToken(token)
			if err != nil {
				return err
			}

			var result SelfJoinResult
			query := url.Values{"id": {id}, "playerToken": {sessionToken}}
			if err := client.Post("/client/auth_with_self", query, &result); err != nil {
				return err
			}

			newCmdOutput(cmd).Print(result)
			return result.Err()
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Player id")
	cmd.Flags().StringVar(&token, "token", "", "Session token (default: saved token)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newAuthServerCmd() *cobra.Command {
	var id, token, serverID, password string

	cmd := &cobra.Command{
		Use:   "auth-server",
		Short: "Authorize joining a registered game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionToken, err := resolveToken(token)
			if err != nil {
				return err
			}

			var result ServerJoinResult
			query := url.Values{
				"id":          {id},
				"playerToken": {sessionToken},
				"server":      {serverID},
				"password":    {password},
			}
			if err := client.Post("/client/auth_with_server", query, &result); err != nil {
				return err
			}

			newCmdOutput(cmd).Print(result)
			return result.Err()
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Player id")
	cmd.Flags().StringVar(&token, "token", "", "Session token (default: saved token)")
	cmd.Flags().StringVar(&serverID, "game-server", "", "Game server id")
	cmd.Flags().StringVar(&password, "password", "", "Game server password")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("game-server")

	return cmd
}

func resolveToken(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	token, err := cfg.LoadToken()
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return token, nil
}
