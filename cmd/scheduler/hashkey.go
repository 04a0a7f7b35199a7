package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/shift-scheduler/internal/application"
)

func newHashKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key [KEY]",
		Short: "Print the argon2id hash of an API key for SCHEDULER_API_KEY_HASH",
		Long: `hash-key hashes KEY, or the first line of stdin when KEY is omitted, and
prints the encoded hash. Store the hash in the configuration; the key itself
is what clients send in the X-API-Key header.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read key from stdin: %w", err)
				}
				key = strings.TrimRight(line, "\r\n")
			}
			if strings.TrimSpace(key) == "" {
				return errors.New("API key must not be empty")
			}

			encoded, err := application.HashAPIKey(key, application.DefaultArgon2idParams)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return nil
		},
	}
}
