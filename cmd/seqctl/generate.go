package main

import (
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/knowledge"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/sequencing"
)

func generateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one or more classes",
		Long: `Generate builds a class for the requested duration and difficulty.
With --count > 1 the classes are generated back to back for the same user, so movements used
in earlier classes are weighted down in later ones.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := knowledge.LoadCatalogFile(v.GetString("catalog"))
			if err != nil {
				return err
			}
			repo := knowledge.NewInMemoryRepository(catalog)
			if v.GetBool("beginner") {
				repo.SetBeginner(v.GetString("user"), true)
			}

			clock := time.Now().UTC()
			service := sequencing.NewService(sequencing.Dependencies{
				Movements:   repo,
				History:     repo,
				Transitions: repo,
				Profiles:    repo,
				Quality:     repo,
			},
				sequencing.WithLogger(log.New(cmd.ErrOrStderr(), "[sequencing] ", 0)),
				sequencing.WithClock(func() time.Time {
					clock = clock.Add(24 * time.Hour)
					return clock
				}),
			)

			count := v.GetInt("count")
			if count < 1 {
				return fmt.Errorf("--count must be >= 1")
			}

			req := sequencing.GenerateRequest{
				TargetMinutes:       v.GetInt("duration"),
				Difficulty:          v.GetString("difficulty"),
				FocusAreas:          v.GetStringSlice("focus"),
				RequiredMovementIDs: v.GetStringSlice("require"),
				ExcludedMovementIDs: v.GetStringSlice("exclude"),
				UserID:              v.GetString("user"),
			}
			var seed *uint64
			if v.IsSet("seed") {
				s := v.GetUint64("seed")
				seed = &s
			}

			classes := make([]*sequencing.GeneratedSequence, 0, count)
			for i := 0; i < count; i++ {
				if seed != nil {
					s := *seed + uint64(i)
					req.Seed = &s
				}
				generated, err := service.GenerateSequence(cmd.Context(), req)
				if err != nil {
					return err
				}
				classes = append(classes, generated)
			}

			out := cmd.OutOrStdout()
			if v.GetBool("json") {
				if count == 1 {
					return printJSON(out, classes[0])
				}
				return printJSON(out, classes)
			}
			for i, generated := range classes {
				if i > 0 {
					fmt.Fprintln(out)
				}
				renderSequence(out, generated)
			}
			return nil
		},
	}
	cmd.Flags().Int("duration", 30, "target class length in minutes (12 for a quick practice, up to 120)")
	cmd.Flags().String("difficulty", "beginner", "class difficulty (beginner, intermediate, advanced)")
	cmd.Flags().StringSlice("focus", nil, "focus muscle group (repeatable or comma separated)")
	cmd.Flags().StringSlice("require", nil, "movement id that must be included (repeatable)")
	cmd.Flags().StringSlice("exclude", nil, "movement id that must not be used (repeatable)")
	cmd.Flags().String("user", "", "user id the classes are generated for")
	cmd.Flags().Bool("beginner", false, "treat the user as a beginner")
	cmd.Flags().Uint64("seed", 0, "random seed; omit for a random class")
	cmd.Flags().Int("count", 1, "number of consecutive classes to generate")
	for _, name := range []string{"duration", "difficulty", "focus", "require", "exclude", "user", "beginner", "seed", "count"} {
		_ = v.BindPFlag(name, cmd.Flags().Lookup(name))
	}
	return cmd
}

func renderSequence(out io.Writer, g *sequencing.GeneratedSequence) {
	fmt.Fprintf(out, "Class %s (%s, %d min, seed %d)\n", g.ID, g.Difficulty, g.Budget.TargetMinutes, g.Seed)

	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"#", "Type", "Item", "Position", "Family", "Seconds"})
	position := 0
	for _, item := range g.Items {
		switch {
		case item.Movement != nil:
			position++
			m := item.Movement
			tw.AppendRow(table.Row{position, item.Kind, m.Name + " (" + m.ID + ")", m.SetupPosition, m.Family, m.DurationSeconds})
		case item.Transition != nil:
			t := item.Transition
			tw.AppendRow(table.Row{"", item.Kind, t.Narrative, t.FromPosition + " -> " + t.ToPosition, "", t.DurationSeconds})
		}
	}
	tw.AppendFooter(table.Row{"", "", "", "", "Total", g.TotalDurationSeconds})
	tw.Render()

	outcome := string(g.Outcome.Status)
	if g.Outcome.Reason != "" {
		outcome += " (" + g.Outcome.Reason + ")"
	}
	fmt.Fprintf(out, "Outcome: %s\n", outcome)
	fmt.Fprintf(out, "Safety score: %.2f valid=%t\n", g.Validation.SafetyScore, g.Validation.IsValid)
	if len(g.SkippedRequired) > 0 {
		fmt.Fprintf(out, "Required but not placed: %s\n", strings.Join(g.SkippedRequired, ", "))
	}
	for _, v := range g.Validation.Violations {
		fmt.Fprintf(out, "VIOLATION: %s\n", v)
	}
	for _, w := range g.Validation.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}

	renderBalance(out, g.MuscleBalance)
}

func renderBalance(out io.Writer, balance domain.MuscleBalance) {
	if len(balance) == 0 {
		return
	}
	groups := make([]string, 0, len(balance))
	for group := range balance {
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		if balance[groups[i]] != balance[groups[j]] {
			return balance[groups[i]] > balance[groups[j]]
		}
		return groups[i] < groups[j]
	})

	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"Muscle group", "Share %"})
	for _, group := range groups {
		tw.AppendRow(table.Row{group, fmt.Sprintf("%.1f", balance[group])})
	}
	tw.Render()
}
