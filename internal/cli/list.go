package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tgup/internal/adapter/filesystem"
	"tgup/internal/domain"
	"tgup/internal/usecase"
)

var listFrom string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the last uploaded batch of files without downloading",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			engine := usecase.NewTransferer(a.client, a.fs, filesystem.NewSniffer("", false), a.console, a.log)

			msgs, err := collectFiles(ctx, engine, domain.Entity(listFrom))
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				fmt.Println("No files found.")
				return nil
			}
			for _, m := range msgs {
				fmt.Printf("%8d  %12d  %s\n", m.ID, m.Size, m.DisplayName())
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listFrom, "from", "me", "source: me, @username or a chat ID")
}
