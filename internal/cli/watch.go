package cli

import (
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Render the channel and re-render whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			p := a.poller(cmd.OutOrStdout(), cmd.ErrOrStderr())

			// the initial failure is already reported; keep polling
			_ = p.Start(ctx)
			<-p.Done()
			return nil
		},
	}
}

func newPostsCmd(a *app) *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Print the channel once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if summary {
				posts, err := a.api().ListPosts(ctx)
				if err != nil {
					return err
				}
				for _, p := range posts {
					title := ""
					if p.Title != nil {
						title = *p.Title
					}
					cmd.Printf("%s\t%s\t%s\n", p.ID, title, firstLine(p.Message))
				}
				return nil
			}
			return a.poller(cmd.OutOrStdout(), cmd.ErrOrStderr()).Refresh(ctx)
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "print id, title and first message line only")
	return cmd
}
