package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/histread/internal/assignment"
)

var assignmentCmd = &cobra.Command{
	Use:   "assignment",
	Short: "Manage reading assignments",
}

var assignmentImportCmd = &cobra.Command{
	Use:   "import <file.yaml>...",
	Short: "Validate and store assignments from YAML files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		catalog := assignment.NewCatalog(s.Assignments())
		for _, path := range args {
			a, err := assignment.LoadFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if err := catalog.Save(cmd.Context(), a); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s  %s (%d sources, %d skills)\n",
				a.ID, a.DisplayTitle(), len(a.Sources), len(a.Skills))
		}
		return nil
	},
}

var assignmentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored assignments",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		items, err := assignment.NewCatalog(s.Assignments()).List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list assignments: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, "No assignments found. Add one with: histread assignment import <file.yaml>")
			return nil
		}

		fmt.Fprintf(out, "%-36s  %-32s  %-12s  %7s  %6s\n", "ID", "Title", "Proficiency", "Sources", "Skills")
		fmt.Fprintln(out, strings.Repeat("─", 100))
		for _, a := range items {
			fmt.Fprintf(out, "%-36s  %-32s  %-12s  %7d  %6d\n",
				truncate(a.ID, 36), truncate(a.DisplayTitle(), 32), a.Proficiency, len(a.Sources), len(a.Skills))
		}
		return nil
	},
}

var assignmentShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one assignment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		a, err := assignment.NewCatalog(s.Assignments()).Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("get assignment %s: %w", args[0], err)
		}

		out := cmd.OutOrStdout()
		if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(a); err != nil {
				return err
			}
			return enc.Close()
		}

		fmt.Fprintf(out, "ID:          %s\n", a.ID)
		fmt.Fprintf(out, "Title:       %s\n", a.DisplayTitle())
		fmt.Fprintf(out, "Topic:       %s\n", a.Topic)
		fmt.Fprintf(out, "Question:    %s\n", a.GuidingQuestion)
		fmt.Fprintf(out, "Proficiency: %s\n", a.Proficiency)
		fmt.Fprintf(out, "Skills:      %s\n", strings.Join(a.Skills, ", "))
		fmt.Fprintln(out)
		for i, src := range a.Sources {
			fmt.Fprintf(out, "%d. %s  (%s, %s)\n", i+1, src.Title, src.AuthorOrUnknown(), src.YearOrUndated())
		}
		return nil
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func init() {
	assignmentShowCmd.Flags().Bool("yaml", false, "Print the assignment as importable YAML")

	assignmentCmd.AddCommand(assignmentImportCmd)
	assignmentCmd.AddCommand(assignmentListCmd)
	assignmentCmd.AddCommand(assignmentShowCmd)
}
