package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/northstarhq/api/internal/app"
	"github.com/northstarhq/api/internal/infra/postgres"
)

type workspaceInfo struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Slug    string `json:"slug" yaml:"slug"`
	Plan    string `json:"plan" yaml:"plan"`
	Status  string `json:"status" yaml:"status"`
	Members int64  `json:"members" yaml:"members"`
	Created string `json:"created_at" yaml:"created_at"`
}

var getWorkspacesCmd = &cobra.Command{
	Use:     "get-workspaces",
	Aliases: []string{"workspaces"},
	Short:   "List workspaces that can serve requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		db := mustDB()
		defer db.Close()
		repo := postgres.NewTenantRepository(db)

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		ids, err := repo.ListActiveTenantIDs(ctx)
		if err != nil {
			return err
		}

		infos := make([]workspaceInfo, 0, len(ids))
		for _, id := range ids {
			t, err := repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			members, err := repo.CountMembersByTenant(ctx, id)
			if err != nil {
				return err
			}
			infos = append(infos, workspaceInfo{
				ID:      t.ID().String(),
				Name:    t.Name(),
				Slug:    t.Slug(),
				Plan:    string(t.Plan()),
				Status:  string(t.Status()),
				Members: members,
				Created: t.CreatedAt().Format("2006-01-02"),
			})
		}

		if flagOutput == outputJSON {
			printJSON(infos)
			return nil
		}
		if flagOutput == outputYAML {
			printYAML(infos)
			return nil
		}

		t := newTable("SLUG", "NAME", "PLAN", "STATUS", "MEMBERS", "CREATED")
		for _, w := range infos {
			t.AddRow(w.Slug, truncate(w.Name, 30), w.Plan, w.Status,
				strconv.FormatInt(w.Members, 10), w.Created)
		}
		t.Flush()
		return nil
	},
}

var describeWorkspaceCmd = &cobra.Command{
	Use:   "describe-workspace SLUG",
	Short: "Show a workspace and its members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db := mustDB()
		defer db.Close()
		repo := postgres.NewTenantRepository(db)

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		t, err := repo.GetBySlug(ctx, args[0])
		if err != nil {
			return err
		}
		members, err := repo.ListMembersWithUserInfo(ctx, t.ID())
		if err != nil {
			return err
		}

		fmt.Printf("Workspace: %s\n", t.Name())
		fmt.Printf("  ID:      %s\n", t.ID().String())
		fmt.Printf("  Slug:    %s\n", t.Slug())
		fmt.Printf("  Plan:    %s\n", t.Plan())
		fmt.Printf("  Status:  %s\n", t.Status())
		fmt.Printf("  Created: %s\n", t.CreatedAt().Format("2006-01-02 15:04:05"))
		fmt.Printf("\nMembers (%d):\n", len(members))

		tbl := newTable("EMAIL", "NAME", "ROLE", "JOINED")
		for _, m := range members {
			tbl.AddRow(m.Email, truncate(m.Name, 30), string(m.Role),
				m.JoinedAt.Format("2006-01-02"))
		}
		tbl.Flush()
		return nil
	},
}

var purgeChatCmd = &cobra.Command{
	Use:   "purge-chat SLUG",
	Short: "Prune a workspace's chat history past its retention window",
	Long: `Prune deletes chat messages older than the workspace plan's
retention window. Workspaces whose plan includes full chat history are
left untouched. The same pass runs daily in the server's background
controller; this command forces it for one workspace.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db := mustDB()
		defer db.Close()

		tenantRepo := postgres.NewTenantRepository(db)
		svc := app.NewChatService(
			postgres.NewChatRepository(db),
			postgres.NewTeamRepository(db),
			tenantRepo,
			cliLogger(),
		)

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		t, err := tenantRepo.GetBySlug(ctx, args[0])
		if err != nil {
			return err
		}

		deleted, err := svc.PruneHistory(ctx, t.ID())
		if err != nil {
			return err
		}

		fmt.Printf("Pruned %d messages from workspace %q\n", deleted, t.Slug())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getWorkspacesCmd, describeWorkspaceCmd, purgeChatCmd)
}
