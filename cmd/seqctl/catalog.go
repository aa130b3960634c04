package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/knowledge"
)

func catalogCmd(v *viper.Viper) *cobra.Command {
	c := &cobra.Command{Use: "catalog", Short: "Inspect the movement catalog"}
	c.AddCommand(catalogListCmd(v))
	return c
}

func catalogListCmd(v *viper.Viper) *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List movements at or below a difficulty",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := knowledge.LoadCatalogFile(v.GetString("catalog"))
			if err != nil {
				return err
			}
			difficulty, err := domain.ParseDifficulty(level)
			if err != nil {
				return err
			}
			repo := knowledge.NewInMemoryRepository(catalog)
			movements, err := repo.ListMovements(cmd.Context(), difficulty, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if v.GetBool("json") {
				return printJSON(out, movements)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(out)
			tw.AppendHeader(table.Row{"ID", "Name", "Difficulty", "Position", "Family", "Muscle groups"})
			for _, m := range movements {
				tw.AppendRow(table.Row{m.ID, m.Name, m.Difficulty, m.SetupPosition, m.Family, strings.Join(m.MuscleGroups, ", ")})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "difficulty", "advanced", "highest difficulty to include")
	return cmd
}
