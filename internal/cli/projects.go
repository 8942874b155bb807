package cli

import (
	"context"
	"fmt"
	"time"

	matchlight "github.com/raphaelgruber/matchlight-go"
	"github.com/spf13/cobra"
)

var (
	projectType  string
	projectForce bool
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage monitoring projects",
	RunE:  runProjectsList,
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE:  runProjectsList,
}

var projectsGetCmd = &cobra.Command{
	Use:   "get <upload-token>",
	Short: "Show one project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsGet,
}

var projectsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a project",
	Long: `Create a project. The type decides which records it accepts:
document, source_code, pii or bulk_pii.

Example:
  matchlight projects add "Customer PII" --type pii`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectsAdd,
}

var projectsRenameCmd = &cobra.Command{
	Use:   "rename <upload-token> <name>",
	Short: "Rename a project",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectsRename,
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <upload-token>",
	Short: "Delete a project and its records",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsDelete,
}

func init() {
	projectsListCmd.Flags().StringVarP(&projectType, "type", "t", "", "only list projects of this type")
	projectsAddCmd.Flags().StringVarP(&projectType, "type", "t", "", "project type (required)")
	_ = projectsAddCmd.MarkFlagRequired("type")
	projectsDeleteCmd.Flags().BoolVarP(&projectForce, "force", "f", false, "skip confirmation")

	projectsCmd.AddCommand(projectsListCmd, projectsGetCmd, projectsAddCmd, projectsRenameCmd, projectsDeleteCmd)
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	projects, err := ml.Projects.Filter(context.Background(), projectType)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	if len(projects) == 0 {
		fmt.Println("No projects.")
		return nil
	}

	fmt.Printf("%-36s %-12s %-8s %-7s %s\n", "UPLOAD TOKEN", "TYPE", "RECORDS", "UNSEEN", "NAME")
	fmt.Printf("%-36s %-12s %-8s %-7s %s\n", "------------", "----", "-------", "------", "----")
	for _, p := range projects {
		fmt.Printf("%-36s %-12s %-8d %-7d %s\n",
			p.UploadToken, p.Type, p.NumberOfRecords, p.NumberOfUnseenAlerts, p.Name)
	}
	return nil
}

func runProjectsGet(cmd *cobra.Command, args []string) error {
	p, err := ml.Projects.Get(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("get project: %w", err)
	}
	if p == nil {
		return fmt.Errorf("project %s: %w", args[0], matchlight.ErrNotFound)
	}
	printProject(p)
	return nil
}

func runProjectsAdd(cmd *cobra.Command, args []string) error {
	p, err := ml.Projects.Add(context.Background(), args[0], projectType)
	if err != nil {
		return fmt.Errorf("add project: %w", err)
	}
	fmt.Println(defaultTheme.completedStyle().Render("✓ Created"))
	printProject(p)
	return nil
}

func runProjectsRename(cmd *cobra.Command, args []string) error {
	p, err := ml.Projects.Edit(context.Background(), matchlight.UploadToken(args[0]), args[1])
	if err != nil {
		return fmt.Errorf("rename project: %w", err)
	}
	printProject(p)
	return nil
}

func runProjectsDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	token := args[0]

	if !projectForce {
		p, err := ml.Projects.Get(ctx, token)
		if err != nil {
			return fmt.Errorf("get project: %w", err)
		}
		if p == nil {
			return fmt.Errorf("project %s: %w", token, matchlight.ErrNotFound)
		}
		ok, err := confirm(fmt.Sprintf("This will delete project %q and its %d records.", p.Name, p.NumberOfRecords))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := ml.Projects.Delete(ctx, matchlight.UploadToken(token)); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	fmt.Printf("Deleted project %s\n", token)
	return nil
}

func printProject(p *matchlight.Project) {
	fmt.Printf("Name:          %s\n", p.Name)
	fmt.Printf("Type:          %s\n", p.Type)
	fmt.Printf("Upload token:  %s\n", p.UploadToken)
	fmt.Printf("Records:       %d\n", p.NumberOfRecords)
	fmt.Printf("Unseen alerts: %d\n", p.NumberOfUnseenAlerts)
	if t := p.LastModified(); !t.IsZero() {
		fmt.Printf("Modified:      %s\n", t.Format(time.DateTime))
	}
}
