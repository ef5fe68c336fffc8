package cli

import (
	"strings"

	"teamsemu/internal/client"

	"github.com/spf13/cobra"
)

func newPostCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Create, update or delete posts",
	}

	var in client.NewPost
	var title string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("title") {
				in.Title = &title
			}
			post, err := a.poller(cmd.OutOrStdout(), cmd.ErrOrStderr()).CreatePost(cmd.Context(), in)
			if err != nil {
				return err
			}
			cmd.Printf("Created post %s\n", post.ID)
			return nil
		},
	}
	create.Flags().StringVar(&title, "title", "", "post title")
	addAuthorFlags(create, &in.User, &in.Role, &in.Message)

	var upd client.PostUpdate
	var newTitle, newMessage string
	update := &cobra.Command{
		Use:   "update <post-id>",
		Short: "Update a post's title and/or message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("title") {
				upd.Title = &newTitle
			}
			if cmd.Flags().Changed("message") {
				upd.Message = &newMessage
			}
			post, err := a.poller(cmd.OutOrStdout(), cmd.ErrOrStderr()).UpdatePost(cmd.Context(), args[0], upd)
			if err != nil {
				return err
			}
			cmd.Printf("Updated post %s\n", post.ID)
			return nil
		},
	}
	update.Flags().StringVar(&newTitle, "title", "", "new title")
	update.Flags().StringVar(&newMessage, "message", "", "new message")

	del := &cobra.Command{
		Use:   "delete <post-id>",
		Short: "Delete a post and its replies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.poller(cmd.OutOrStdout(), cmd.ErrOrStderr()).DeletePost(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("Deleted post %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(create, update, del)
	return cmd
}

func newReplyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reply",
		Short: "Create, update or delete replies",
	}

	var in client.NewReply
	create := &cobra.Command{
		Use:   "create <post-id>",
		Short: "Reply to a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := a.poller(cmd.OutOrStdout(), cmd.ErrOrStderr()).CreateReply(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			cmd.Printf("Created reply %s\n", reply.ID)
			return nil
		},
	}
	addAuthorFlags(create, &in.User, &in.Role, &in.Message)

	var message string
	update := &cobra.Command{
		Use:   "update <reply-id>",
		Short: "Update a reply's message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd client.ReplyUpdate
			if cmd.Flags().Changed("message") {
				upd.Message = &message
			}
			reply, err := a.poller(cmd.OutOrStdout(), cmd.ErrOrStderr()).UpdateReply(cmd.Context(), args[0], upd)
			if err != nil {
				return err
			}
			cmd.Printf("Updated reply %s\n", reply.ID)
			return nil
		},
	}
	update.Flags().StringVar(&message, "message", "", "new message")

	del := &cobra.Command{
		Use:   "delete <reply-id>",
		Short: "Delete a reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.poller(cmd.OutOrStdout(), cmd.ErrOrStderr()).DeleteReply(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("Deleted reply %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(create, update, del)
	return cmd
}

func addAuthorFlags(cmd *cobra.Command, user, role, message *string) {
	cmd.Flags().StringVar(user, "user", "", "author name")
	cmd.Flags().StringVar(role, "role", "", "author role")
	cmd.Flags().StringVar(message, "message", "", "message text")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
