package cli

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tgup/internal/adapter/filesystem"
	"tgup/internal/domain"
	"tgup/internal/usecase"
)

type uploadOptions struct {
	To              string
	Album           bool
	DeleteOnSuccess bool
	PrintFileID     bool
	ForceFile       bool
	Forward         []string
	Caption         string
	Thumbnail       string
}

var uploadFlags uploadOptions

var uploadCmd = &cobra.Command{
	Use:   "upload [files...]",
	Short: "Upload files to a conversation",
	Long: `Upload files to a Telegram conversation as document messages, in the
order given. Media-typed files (video, audio, images) are sent with
their media attributes unless --force-file is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, a *app) error {
			sniffer := filesystem.NewSniffer(uploadFlags.Thumbnail, uploadFlags.ForceFile)
			files, err := sniffer.NewFiles(args)
			if err != nil {
				return err
			}

			engine := usecase.NewTransferer(a.client, a.fs, sniffer, a.console, a.log)
			defer a.console.Wait()

			opts := usecase.SendOptions{
				Caption:         uploadFlags.Caption,
				DeleteOnSuccess: uploadFlags.DeleteOnSuccess,
				PrintFileID:     uploadFlags.PrintFileID,
				ForceDocument:   uploadFlags.ForceFile,
				Forward:         toEntities(uploadFlags.Forward),
			}

			to := domain.Entity(uploadFlags.To)
			if uploadFlags.Album {
				return engine.SendFilesAsAlbum(ctx, to, files, opts)
			}
			return engine.SendFiles(ctx, to, files, opts)
		})
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVar(&uploadFlags.To, "to", "me", "destination: me, @username or a chat ID")
	uploadCmd.Flags().BoolVar(&uploadFlags.Album, "album", false, "group files into albums of up to 10 attachments")
	uploadCmd.Flags().BoolVar(&uploadFlags.DeleteOnSuccess, "delete-on-success", false, "delete the local file after a verified upload")
	uploadCmd.Flags().BoolVar(&uploadFlags.PrintFileID, "print-file-id", false, "print the remote file id of each uploaded document")
	uploadCmd.Flags().BoolVar(&uploadFlags.ForceFile, "force-file", false, "send media-typed files as plain documents")
	uploadCmd.Flags().StringSliceVar(&uploadFlags.Forward, "forward", nil, "forward the uploaded message to these destinations, in order")
	uploadCmd.Flags().StringVar(&uploadFlags.Caption, "caption", "", "caption for every file (defaults to the file name)")
	uploadCmd.Flags().StringVar(&uploadFlags.Thumbnail, "thumbnail", "", "thumbnail image applied to every upload")

	viper.BindPFlag("upload.to", uploadCmd.Flags().Lookup("to"))
}

func toEntities(names []string) []domain.Entity {
	out := make([]domain.Entity, 0, len(names))
	for _, n := range names {
		out = append(out, domain.Entity(n))
	}
	return out
}
