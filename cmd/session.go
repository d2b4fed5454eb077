package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/histread/internal/assignment"
	"github.com/abhisek/histread/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect reading sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		assignmentID, _ := cmd.Flags().GetString("assignment")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		recs, err := s.Sessions().List(cmd.Context(), assignmentID)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}

		fmt.Fprintf(out, "%-36s  %-20s  %-11s  %-9s  %-19s  %s\n",
			"ID", "Assignment", "Phase", "Position", "Started", "Ended")
		fmt.Fprintln(out, strings.Repeat("─", 116))
		for _, r := range recs {
			ended := "-"
			if r.EndedAt != nil {
				ended = formatTime(*r.EndedAt)
			}
			fmt.Fprintf(out, "%-36s  %-20s  %-11s  %-9s  %-19s  %s\n",
				r.ID, truncate(r.AssignmentID, 20), r.Phase,
				fmt.Sprintf("%d/%d", r.SourceIndex+1, r.SkillIndex+1),
				formatTime(r.StartedAt), ended)
		}
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session's state and full transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		st, entries, err := session.NewStoreRepository(s.Sessions()).Load(ctx, args[0])
		if err != nil {
			return fmt.Errorf("load session %s: %w", args[0], err)
		}
		a, err := assignment.NewCatalog(s.Assignments()).Get(ctx, st.AssignmentID)
		if err != nil {
			return fmt.Errorf("get assignment %s: %w", st.AssignmentID, err)
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(session.Audit{State: st, Assignment: a, Entries: entries})
		}

		fmt.Fprintf(out, "Session:     %s\n", st.ID)
		fmt.Fprintf(out, "Assignment:  %s (%s)\n", a.DisplayTitle(), a.ID)
		fmt.Fprintf(out, "Phase:       %s\n", st.Phase)
		if st.Phase == session.PhaseSourceLoop {
			skill, _ := a.SkillAt(st.SkillIndex)
			fmt.Fprintf(out, "Position:    source %d of %d, skill %q (%d of %d)\n",
				st.SourceIndex+1, len(a.Sources), skill, st.SkillIndex+1, len(a.Skills))
			fmt.Fprintf(out, "Questions:   %d\n", st.QuestionsAsked)
		}
		fmt.Fprintf(out, "Started:     %s\n", formatTime(st.StartedAt))
		if st.EndedAt != nil {
			fmt.Fprintf(out, "Ended:       %s\n", formatTime(*st.EndedAt))
		}
		fmt.Fprintf(out, "Version:     %d\n", st.Version)

		if keys := st.Evidence.Keys(); len(keys) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Evidence")
			for _, k := range keys {
				skill, _ := a.SkillAt(k.Skill)
				fmt.Fprintf(out, "  source %d, %s: %d utterances\n", k.Source+1, skill, len(st.Evidence[k]))
			}
		}

		sep := strings.Repeat("─", 60)
		fmt.Fprintln(out)
		fmt.Fprintln(out, sep)
		for _, e := range entries {
			fmt.Fprintf(out, "#%d  %s  %s  source %d skill %d\n",
				e.Seq, formatTime(e.CreatedAt), e.Phase, e.SourceIndex+1, e.SkillIndex+1)
			if e.IsTransition() {
				fmt.Fprintln(out, "Student: (none)")
			} else {
				fmt.Fprintf(out, "Student: %s\n", e.Input())
			}
			fmt.Fprintf(out, "Tutor:   %s\n", e.SystemOutput)
			fmt.Fprintln(out, sep)
		}
		return nil
	},
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func init() {
	sessionListCmd.Flags().String("assignment", "", "Only sessions for this assignment ID")
	sessionShowCmd.Flags().Bool("json", false, "Print the audit as JSON")

	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
}
