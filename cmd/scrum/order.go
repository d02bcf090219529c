package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scrum/internal/models"
)

var orderCmd = &cobra.Command{
	Use:   "order <goal>...",
	Short: "Print the execution order of the goals and everything they depend on",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		tasks, err := store.Order(cmd.Context(), models.ParseRefs(args))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for i, t := range tasks {
			fmt.Fprintf(out, "%3d. %s %s\n", i+1, t.Key(), dimStyle.Render(string(t.Status)))
		}
		return nil
	},
}
