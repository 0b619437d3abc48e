package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aliskhannn/chorequest-bot/internal/domain/entities"
)

// ProcessOptions holds flags for the process command.
type ProcessOptions struct {
	*RootOptions
	ChoreID     string
	UserID      string
	HouseholdID string
	Difficulty  string
	OccurredAt  string
}

type processResult struct {
	Status              string `json:"status"`
	XPAwarded           int    `json:"xp_awarded"`
	LevelsGained        int    `json:"levels_gained"`
	AchievementsUpdated int    `json:"achievements_updated"`
	Attempts            int    `json:"attempts"`
	XP                  int    `json:"xp,omitempty"`
	Level               int    `json:"level,omitempty"`
	CurrentStreak       int    `json:"current_streak,omitempty"`
}

// NewProcessCommand creates the process command.
func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProcessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Apply one chore completion",
		Long: `Apply one chore completion, for example to replay an event that was lost
upstream. Completions already processed are reported as skipped.

Examples:
  chorequest process --chore 8f1c --user alice --difficulty hard
  chorequest process --chore 8f1c --user alice --at 2026-05-06T09:00:00Z`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.ChoreID == "" || opts.UserID == "" {
				return errors.New("--chore and --user are required")
			}

			occurredAt := time.Now()
			if opts.OccurredAt != "" {
				t, err := time.Parse(time.RFC3339, opts.OccurredAt)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				occurredAt = t
			}

			a, err := newApp(cmd.Context(), opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			out, err := a.progression.Process(cmd.Context(), entities.CompletionEvent{
				SubjectID:   opts.ChoreID,
				UserID:      opts.UserID,
				HouseholdID: opts.HouseholdID,
				Difficulty:  entities.ParseDifficulty(opts.Difficulty),
				OccurredAt:  occurredAt,
			})
			if err != nil {
				return err
			}

			res := processResult{
				Status:              string(out.Status),
				XPAwarded:           out.XPAwarded,
				LevelsGained:        out.LevelsGained,
				AchievementsUpdated: out.AchievementsUpdated,
				Attempts:            out.Attempts,
			}
			if out.Progress != nil {
				res.XP = out.Progress.XP
				res.Level = out.Progress.Level
				res.CurrentStreak = out.Progress.CurrentStreak
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&opts.ChoreID, "chore", "", "chore ID (idempotency key)")
	cmd.Flags().StringVar(&opts.UserID, "user", "", "assignee user ID")
	cmd.Flags().StringVar(&opts.HouseholdID, "household", "", "household ID")
	cmd.Flags().StringVar(&opts.Difficulty, "difficulty", "medium", "easy, medium or hard")
	cmd.Flags().StringVar(&opts.OccurredAt, "at", "", "completion time, RFC 3339 (default now)")

	return cmd
}
