package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/memorywall/pkg/session"
	"github.com/matzehuels/memorywall/pkg/store"
	"github.com/matzehuels/memorywall/pkg/wall"
)

// wallCommand creates the wall management command.
func (c *CLI) wallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wall",
		Short: "Create, join and inspect walls",
	}

	cmd.AddCommand(c.wallCreateCommand())
	cmd.AddCommand(c.wallJoinCommand())
	cmd.AddCommand(c.wallListCommand())
	cmd.AddCommand(c.wallMembersCommand())
	cmd.AddCommand(c.wallWhoamiCommand())

	return cmd
}

// withWallStore loads the config, the local identity and the store, and
// runs fn with them. name renames the identity when non-empty.
func (c *CLI) withWallStore(cmd *cobra.Command, name string, fn func(*session.Session, store.Store) error) error {
	ctx := cmd.Context()
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
	st, err := c.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(sess, st)
}

func (c *CLI) wallCreateCommand() *cobra.Command {
	var (
		description string
		name        string
	)
	cmd := &cobra.Command{
		Use:   "create TITLE",
		Short: "Create a wall and join it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWallStore(cmd, name, func(sess *session.Session, st store.Store) error {
				ctx := cmd.Context()
				w, err := wall.NewWall(args[0], description, sess.UserID)
				if err != nil {
					return err
				}
				if err := st.CreateWall(ctx, w); err != nil {
					return fmt.Errorf("create wall: %w", err)
				}
				if _, err := st.JoinWall(ctx, w.ID, sess.UserID, sess.Name, w.Code); err != nil {
					return fmt.Errorf("join new wall: %w", err)
				}
				c.Logger.Debug("created wall", "wall", w.ID, "user", sess.UserID)

				printSuccess("Created %s", StyleHighlight.Render(w.Title))
				printKeyValue("ID", w.ID)
				printKeyValue("Code", w.Code)
				printKeyValue("Link code", w.LinkCode)
				printNewline()
				printNextStep("Share it", fmt.Sprintf("%s wall join %s %s", appName, w.ID, w.Code))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "wall description")
	cmd.Flags().StringVar(&name, "name", "", "your display name")
	return cmd
}

func (c *CLI) wallJoinCommand() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "join WALL_ID CODE",
		Short: "Join a wall with its six-digit code or link code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWallStore(cmd, name, func(sess *session.Session, st store.Store) error {
				m, err := st.JoinWall(cmd.Context(), args[0], sess.UserID, sess.Name, args[1])
				if err != nil {
					return err
				}
				printSuccess("Joined %s", m.WallID)
				printNextStep("Add something", fmt.Sprintf("%s upload %s photo.jpg", appName, m.WallID))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "your display name")
	return cmd
}

func (c *CLI) wallListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the walls you belong to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWallStore(cmd, "", func(sess *session.Session, st store.Store) error {
				walls, err := st.ListWalls(cmd.Context(), sess.UserID)
				if err != nil {
					return err
				}
				if len(walls) == 0 {
					printInfo("No walls yet")
					printNextStep("Create one", appName+" wall create \"Summer 2026\"")
					return nil
				}
				rows := make([][]string, len(walls))
				for i, w := range walls {
					rows[i] = []string{w.Title, w.ID, w.Code, w.CreatedAt.Local().Format(time.DateOnly)}
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Title", "ID", "Code", "Created"}, rows))
				return nil
			})
		},
	}
}

func (c *CLI) wallMembersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "members WALL_ID",
		Short: "List a wall's members, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWallStore(cmd, "", func(sess *session.Session, st store.Store) error {
				members, err := st.ListMembers(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rows := make([][]string, len(members))
				for i, m := range members {
					who := m.Name
					if who == "" {
						who = "—"
					}
					if m.UserID == sess.UserID {
						who += " (you)"
					}
					rows[i] = []string{who, m.UserID, m.JoinedAt.Local().Format(time.DateTime)}
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Name", "User", "Joined"}, rows))
				return nil
			})
		},
	}
}

func (c *CLI) wallWhoamiCommand() *cobra.Command {
	var forget bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show or forget the local identity used for walls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := c.sessions()
			if err != nil {
				return err
			}
			if forget {
				if err := sessions.Delete(cmd.Context()); err != nil {
					return err
				}
				printSuccess("Forgot local identity")
				return nil
			}
			sess, err := sessions.Load(cmd.Context())
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					printInfo("No identity yet; one is created on first join or upload")
					return nil
				}
				return err
			}
			printKeyValue("User", sess.UserID)
			if sess.Name != "" {
				printKeyValue("Name", sess.Name)
			}
			printKeyValue("File", sessions.Path())
			return nil
		},
	}
	cmd.Flags().BoolVar(&forget, "forget", false, "delete the local identity")
	return cmd
}

func renderTable(headers []string, rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return listNormalStyle
			}
			return listDimStyle
		}).
		Render()
}
