package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/histread/internal/assignment"
	"github.com/abhisek/histread/internal/store"
)

var previewCmd = &cobra.Command{
	Use:   "preview <assignment.yaml>",
	Short: "Try an assignment file in a plain text session (no database)",
	Long: `Run a reading session for an assignment file without importing it.

This is a stateless authoring tool: the session lives in an in-memory
database and is gone when the command exits. Type a reply and press Enter.
Type /next to ask to move on and /quit to stop.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	addEngineFlags(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	a, err := assignment.LoadFile(args[0])
	if err != nil {
		return err
	}

	mem, err := store.Open(":memory:")
	if err != nil {
		return fmt.Errorf("open in-memory store: %w", err)
	}
	rt, err := openRuntime(cmd, runtimeOptions{Store: mem})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if err := rt.catalog.Save(ctx, a); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	begin, err := rt.engine.Begin(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	fmt.Fprintf(out, "%s: %d sources, %d skills\n", a.DisplayTitle(), begin.TotalSources, begin.TotalSkills)
	fmt.Fprintf(out, "Guiding question: %s\n\n", begin.GuidingQuestion)
	fmt.Fprintf(out, "Tutor: %s\n", begin.WelcomeMessage)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(out, "\n(input closed)")
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())

		switch text {
		case "":
			continue
		case "/quit":
			return nil
		case "/next":
			res, err := rt.engine.Advance(ctx, begin.SessionID)
			if err != nil {
				fmt.Fprintf(out, "(advance failed: %v)\n", err)
				continue
			}
			switch {
			case res.Blocked:
				fmt.Fprintln(out, "── not yet ──")
			case res.Complete:
				fmt.Fprintln(out, "── complete ──")
			default:
				fmt.Fprintf(out, "── source %d, %s ──\n", *res.SourceIndex+1, res.CurrentSkill)
			}
			fmt.Fprintf(out, "Tutor: %s\n", res.Reply)
			if res.Complete {
				return nil
			}
		default:
			res, err := rt.engine.Submit(ctx, begin.SessionID, text)
			if err != nil {
				fmt.Fprintf(out, "(reply failed: %v)\n", err)
				continue
			}
			fmt.Fprintf(out, "Tutor: %s\n", res.Reply)
		}
	}
}
