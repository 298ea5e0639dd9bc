package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/challasaiteja/gemini-quizify/internal/config"
	"github.com/challasaiteja/gemini-quizify/internal/domain"
	domquiz "github.com/challasaiteja/gemini-quizify/internal/domain/quiz"
	"github.com/challasaiteja/gemini-quizify/internal/ingest"
	logpkg "github.com/challasaiteja/gemini-quizify/internal/logger"
	sessionuc "github.com/challasaiteja/gemini-quizify/internal/usecase/session"
)

var (
	genFiles    []string
	genTopic    string
	genCount    int
	genJSON     bool
	genShowKeys bool
)

// generateCmd runs the pipeline once and prints the bank
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a quiz from local documents",
	Long: `Read the given PDF, DOCX, Markdown or text files, build a transient vector
collection and generate a multiple-choice quiz on the topic.

An incomplete quiz is printed and the command exits non-zero.

Examples:
  # Five questions from two files
  quizify generate --file biology.pdf --file notes.md --topic photosynthesis -n 5

  # Machine-readable output
  quizify generate --file biology.pdf --topic "cell respiration" --json`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringArrayVarP(&genFiles, "file", "f", nil, "document to read (repeatable)")
	generateCmd.Flags().StringVarP(&genTopic, "topic", "t", "", "quiz topic")
	generateCmd.Flags().IntVarP(&genCount, "num-questions", "n", 5, "number of questions")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "print the bank as JSON")
	generateCmd.Flags().BoolVar(&genShowKeys, "answers", true, "include answers and explanations in text output")
	_ = generateCmd.MarkFlagRequired("topic")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger("cli", logLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	docs, err := ingest.ReadFiles(genFiles)
	if err != nil {
		return fmt.Errorf("read documents: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx, usage := domain.NewContextWithUsage(ctx)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	id := a.sessions.Create().ID
	defer func() { _ = a.sessions.Delete(id) }()

	if len(docs) > 0 {
		chunks, err := a.sessions.Ingest(ctx, id, docs)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		logger.Info("Documents ingested", zap.Int("pages", len(docs)), zap.Int("chunks", chunks))
	}

	res, genErr := a.sessions.GenerateQuiz(ctx, id, genTopic, genCount)
	if genErr != nil && res.Produced == 0 {
		return genErr //nolint:wrapcheck // already wrapped by the session service
	}

	out := cmd.OutOrStdout()
	if genJSON {
		err = printJSON(out, res)
	} else {
		err = printText(out, res, genShowKeys)
	}
	if err != nil {
		return err
	}

	logger.Info("Token usage",
		zap.Int("embedding_tokens", usage.EmbeddingTokens()),
		zap.Int("generation_tokens", usage.GenerationTokens()),
	)
	if genErr != nil {
		return fmt.Errorf("quiz incomplete: %d of %d questions: %w", res.Produced, res.Requested, genErr)
	}
	return nil
}

type bankJSON struct {
	Topic     string             `json:"topic"`
	Requested int                `json:"requested"`
	Produced  int                `json:"produced"`
	Complete  bool               `json:"complete"`
	Questions []domquiz.Question `json:"questions"`
}

func printJSON(w io.Writer, res sessionuc.GenerateResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bankJSON{
		Topic:     genTopic,
		Requested: res.Requested,
		Produced:  res.Produced,
		Complete:  res.Complete,
		Questions: res.Questions,
	}); err != nil {
		return fmt.Errorf("encode quiz: %w", err)
	}
	return nil
}

func printText(w io.Writer, res sessionuc.GenerateResult, answers bool) error {
	var sb strings.Builder
	for i, q := range res.Questions {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, q.Question)
		for _, c := range q.Choices {
			fmt.Fprintf(&sb, "   %s) %s\n", c.Key, c.Value)
		}
		if answers {
			fmt.Fprintf(&sb, "   Answer: %s\n", q.Answer)
			if q.Explanation != "" {
				fmt.Fprintf(&sb, "   %s\n", q.Explanation)
			}
		}
		sb.WriteByte('\n')
	}
	if !res.Complete {
		fmt.Fprintf(&sb, "Only %d of %d questions could be generated.\n", res.Produced, res.Requested)
	}
	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("write quiz: %w", err)
	}
	return nil
}
