package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tgup/internal/adapter/filesystem"
	"tgup/internal/domain"
	"tgup/internal/usecase"
)

type downloadOptions struct {
	From            string
	Dir             string
	DeleteOnSuccess bool
}

var downloadFlags downloadOptions

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the last uploaded batch of files",
	Long: `Download the contiguous run of document messages at the head of the
conversation history, oldest first, so files land in their original
upload order. The scan stops at the first non-document message.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			engine := usecase.NewTransferer(a.client, a.fs, filesystem.NewSniffer("", false), a.console, a.log)
			engine.SetDownloadDir(downloadFlags.Dir)
			defer a.console.Wait()

			from := domain.Entity(downloadFlags.From)
			msgs, err := collectFiles(ctx, engine, from)
			if err != nil {
				return err
			}
			return engine.DownloadFiles(ctx, from, msgs, downloadFlags.DeleteOnSuccess)
		})
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVar(&downloadFlags.From, "from", "me", "source: me, @username or a chat ID")
	downloadCmd.Flags().StringVar(&downloadFlags.Dir, "dir", ".", "directory downloads are written to")
	downloadCmd.Flags().BoolVar(&downloadFlags.DeleteOnSuccess, "delete-on-success", false, "delete each remote message after its download succeeds")

	viper.BindPFlag("download.dir", downloadCmd.Flags().Lookup("dir"))
}

func collectFiles(ctx context.Context, engine *usecase.Transferer, from domain.Entity) ([]domain.RemoteMessage, error) {
	var msgs []domain.RemoteMessage
	iter := engine.FindFiles(ctx, from)
	for iter.Next(ctx) {
		msgs = append(msgs, iter.Value())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}
