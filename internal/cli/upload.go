package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/memorywall/pkg/ingest"
)

// uploadCommand creates the upload command.
func (c *CLI) uploadCommand() *cobra.Command {
	var (
		text string
		name string
	)

	cmd := &cobra.Command{
		Use:   "upload WALL_ID [FILE...]",
		Short: "Add photos, videos or a note to a wall",
		Long: `Upload files to a wall's blob storage and add one tile per file.

Images are scaled to the upload width and keep their aspect ratio. Without
files, --text adds a note tile. Files that cannot be stored are reported and
skipped; the others are still added.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			wallID, paths := args[0], args[1:]

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			sessions, err := c.sessions()
			if err != nil {
				return err
			}
			sess, err := sessions.Ensure(ctx, name)
			if err != nil {
				return err
			}

			files := make([]ingest.File, 0, len(paths))
			for _, p := range paths {
				f, err := ingest.ReadFile(p)
				if err != nil {
					return err
				}
				files = append(files, f)
			}

			st, err := c.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			blobs, _, err := c.openBlobs(ctx, cfg)
			if err != nil {
				return err
			}
			ev, err := c.openEvents(cfg)
			if err != nil {
				return err
			}
			defer ev.Close()

			uploader := &ingest.Uploader{Store: st, Blobs: blobs, Publisher: ev.Publisher, Logger: c.Logger}

			spinner := newSpinnerWithContext(ctx, "Uploading...")
			if len(files) > 0 {
				spinner.SetMessage("Uploading %d files to %s...", len(files), wallID)
			}
			spinner.Start()
			res, err := uploader.Upload(ctx, ingest.Request{
				WallID: wallID,
				UserID: sess.UserID,
				Text:   text,
				Files:  files,
			})
			if err != nil {
				spinner.StopWithError("Upload failed")
				return err
			}
			spinner.StopWithSuccess(fmt.Sprintf("Added %d tiles to %s", len(res.Tiles), wallID))
			for _, t := range res.Tiles {
				if t.FileURL != "" {
					printFile(t.FileURL)
				}
			}
			for _, s := range res.Skipped {
				printWarning("Skipped %s: %v", s.Name, s.Err)
			}
			if len(res.Skipped) > 0 && len(res.Tiles) == 0 {
				return fmt.Errorf("no files were uploaded")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "note attached to every file, or a note tile on its own")
	cmd.Flags().StringVar(&name, "name", "", "display name to use on this wall")

	return cmd
}
