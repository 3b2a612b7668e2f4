package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/contract-cli/internal/translate"
)

var translateCmd = &cobra.Command{
	Use:   "translate <json-file> <lang>",
	Short: "Translate the string leaves of a JSON document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		router, err := buildRouter()
		if err != nil {
			return err
		}
		translator := translate.New(router, translate.Config{
			MaxBatchTokens: cfg.Translate.MaxBatchTokens,
			ExcludedKeys:   cfg.Translate.ExcludedKeys,
			Concurrency:    cfg.Translate.MaxConcurrent,
		})

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}
		var content any
		if err := json.Unmarshal(data, &content); err != nil {
			return eris.Wrapf(err, "parse %s", args[0])
		}

		res := translator.Translate(ctx, content, args[1])

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)
}
