package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/contract-cli/internal/analysis"
)

var (
	analyzeUser string
	analyzeLang string
	analyzeName string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <contract-file>",
	Short: "Run the full analysis pipeline on a contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read contract %s", args[0])
		}
		contractText := string(data)

		name := analyzeName
		if name == "" {
			name = filepath.Base(args[0])
		}
		lang := analyzeLang
		if lang == "" {
			lang = cfg.Analysis.DefaultLang
		}

		focus := env.Analyzer.FocusAreas(ctx, analyzeUser)
		zap.L().Info("analysis started",
			zap.String("contract", name),
			zap.String("user", analyzeUser),
			zap.Strings("focus_areas", focus),
		)

		shadow, err := env.Shadow.Analyze(ctx, contractText, focus, lang)
		if err != nil {
			return eris.Wrap(err, "shadow analysis")
		}
		record, err := env.Summary.Analyze(ctx, contractText, focus, lang)
		if err != nil {
			return eris.Wrap(err, "summary analysis")
		}

		eval := analysis.Evaluate(shadow, record, focus)
		report := analysis.MergeReport(analyzeUser, name, lang, record, eval)

		if cfg.Analysis.SaveAnalyses {
			if err := env.Store.SaveAnalysis(ctx, report); err != nil {
				zap.L().Warn("analysis not persisted", zap.Error(err))
			}
			if err := writeReportFile(report.Metadata.AnalysisID, report); err != nil {
				zap.L().Warn("analysis file not written", zap.Error(err))
			}
		}

		zap.L().Info("analysis complete",
			zap.String("analysis_id", report.Metadata.AnalysisID),
			zap.Float64("overall_score", report.Evaluation.OverallScore),
		)

		var output any = report
		if lang != "" && lang != "en" {
			m, err := toMap(report)
			if err != nil {
				return err
			}
			res := env.Translator.Translate(ctx, m, lang)
			if res.Err != "" {
				zap.L().Warn("report partially translated", zap.String("error", res.Err))
			}
			output = res.TranslatedContent
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(output)
	},
}

// toMap converts a struct to the generic form the translator walks.
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "marshal report")
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "remarshal report")
	}
	return m, nil
}

func writeReportFile(analysisID string, report any) error {
	dir := cfg.Analysis.OutputDir
	if dir == "" {
		dir = "contract_analyses"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "create output dir %s", dir)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal report")
	}
	path := filepath.Join(dir, analysisID+".json")
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeUser, "user", "default", "User ID for preference weighting")
	analyzeCmd.Flags().StringVar(&analyzeLang, "lang", "", "Output language (ISO 639-1, default from config)")
	analyzeCmd.Flags().StringVar(&analyzeName, "name", "", "Contract name (default: file name)")
	rootCmd.AddCommand(analyzeCmd)
}
