package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/contract-cli/internal/preference"
)

var areasUser string

var areasCmd = &cobra.Command{
	Use:   "areas",
	Short: "Show a user's preference weights and focus areas",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		weights, err := env.Store.GetWeights(ctx, areasUser)
		if err != nil {
			return err
		}

		out := struct {
			UserID            string                        `json:"user_id"`
			Weights           map[string]float64            `json:"weights"`
			FocusAreas        []string                      `json:"focus_areas"`
			FrequentQuestions []preference.FrequentQuestion `json:"frequent_questions"`
		}{
			UserID:            areasUser,
			Weights:           weights,
			FocusAreas:        env.Analyzer.FocusAreas(ctx, areasUser),
			FrequentQuestions: env.Analyzer.FrequentQuestions(ctx, areasUser, 5),
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	areasCmd.Flags().StringVar(&areasUser, "user", "default", "User ID")
	rootCmd.AddCommand(areasCmd)
}
