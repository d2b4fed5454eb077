package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/histread/internal/app"
	"github.com/abhisek/histread/internal/assignment"
	"github.com/abhisek/histread/internal/screen"
	"github.com/abhisek/histread/internal/screens/assignments"
	"github.com/abhisek/histread/internal/screens/reading"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start a reading session in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd)
	},
}

func init() {
	addEngineFlags(playCmd)
	addEngineFlags(rootCmd)
}

// runPlay builds the engine in-process and launches the TUI.
func runPlay(cmd *cobra.Command) error {
	rt, err := openRuntime(cmd, runtimeOptions{Quiet: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	timeout := turnTimeout(cmd)
	root := assignments.New(rt.catalog, func(a *assignment.Assignment) screen.Screen {
		return reading.New(rt.engine, a, timeout)
	})
	return app.Run(cmd.Context(), root)
}
