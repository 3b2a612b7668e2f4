package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	askUser string
	askLang string
)

var askCmd = &cobra.Command{
	Use:   "ask <contract-file> [question]",
	Short: "Ask questions about a contract",
	Long:  "Starts a chat session over the given contract. With a question argument answers once; without it reads questions from stdin until EOF.",
	Args:  cobra.RangeArgs(1, 2),
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
		lang := askLang
		if lang == "" {
			lang = cfg.Analysis.DefaultLang
		}

		sess, err := env.Sessions.Create(ctx, askUser, string(data), lang)
		if err != nil {
			return eris.Wrap(err, "create session")
		}
		defer env.Sessions.Expire(ctx, sess.ID) //nolint:errcheck

		if len(args) == 2 {
			answer, err := env.Chat.Ask(ctx, sess.ID, args[1])
			if err != nil {
				return eris.Wrap(err, "ask")
			}
			fmt.Println(answer)
			return nil
		}

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		fmt.Print("> ")
		for scanner.Scan() {
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				fmt.Print("> ")
				continue
			}
			answer, err := env.Chat.Ask(ctx, sess.ID, question)
			if err != nil {
				zap.L().Error("question failed", zap.Error(err))
				fmt.Print("> ")
				continue
			}
			fmt.Println(answer)
			fmt.Print("> ")
		}
		return eris.Wrap(scanner.Err(), "read stdin")
	},
}

func init() {
	askCmd.Flags().StringVar(&askUser, "user", "default", "User ID for preference weighting")
	askCmd.Flags().StringVar(&askLang, "lang", "", "Session language (ISO 639-1, default from config)")
	rootCmd.AddCommand(askCmd)
}
