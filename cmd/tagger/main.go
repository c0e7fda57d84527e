// Command tagger runs the photo tagging pipeline outside the server: classify
// a local file or URL with the configured backend, or look up vocabulary
// translations.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkordes/lostfound/backend/internal/storage"
	"github.com/pkordes/lostfound/backend/internal/tagging"
	"github.com/pkordes/lostfound/backend/internal/vision"
	"github.com/pkordes/lostfound/backend/internal/vocabulary"
)

var (
	backend        string
	timeout        time.Duration
	vocabularyPath string
	verbose        bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "tagger",
		Short:         "Classify photos and translate labels like the catalog server does",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&backend, "backend", envOr("CLASSIFIER", vision.BackendNone), "classification backend: none, google, imagga or claude")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", vision.DefaultTimeout, "per-image classification timeout")
	rootCmd.PersistentFlags().StringVar(&vocabularyPath, "vocabulary", os.Getenv("VOCABULARY_PATH"), "YAML vocabulary file (default: built-in Portuguese)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log backend warnings to stderr")

	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(translateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <file|url>",
		Short: "Classify one photo and show every candidate decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := loadImage(args[0])
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
			if verbose {
				logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
			}

			classifier, err := vision.New(visionConfig(), logger)
			if err != nil {
				return err
			}
			vocab, err := vocabulary.Select(vocabularyPath, classifier.Localized())
			if err != nil {
				return err
			}

			decisions, tags := tagging.NewTagger(classifier, vocab, logger).Preview(cmd.Context(), img)
			fmt.Fprintln(cmd.OutOrStdout(), renderDecisions(decisions))
			fmt.Fprintf(cmd.OutOrStdout(), "backend: %s\ntags: %s\n", classifier.Name(), joinOrDash(tags))
			return nil
		},
	}
}

func translateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "translate <label>...",
		Short: "Show the display tag for each provider label",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vocab, err := vocabulary.Select(vocabularyPath, false)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTranslations(vocab, args))
			return nil
		},
	}
}

// visionConfig builds the backend configuration from flags and the same
// environment variables the server reads.
func visionConfig() vision.Config {
	return vision.Config{
		Backend:         strings.ToLower(backend),
		Timeout:         timeout,
		GoogleAPIKey:    os.Getenv("GOOGLE_VISION_API_KEY"),
		ImaggaAPIKey:    os.Getenv("IMAGGA_API_KEY"),
		ImaggaAPISecret: os.Getenv("IMAGGA_API_SECRET"),
		ImaggaLanguage:  envOr("IMAGGA_LANGUAGE", "pt"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", vision.DefaultClaudeModel),
	}
}

// loadImage treats http(s) arguments as URLs and anything else as a local file.
func loadImage(arg string) (vision.Image, error) {
	if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
		return vision.Image{URL: arg}, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return vision.Image{}, err
	}
	format, err := storage.Sniff(data)
	if err != nil {
		return vision.Image{}, fmt.Errorf("%s: %w", arg, err)
	}
	return vision.Image{Data: data, MIMEType: storage.MIMEType(format)}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func joinOrDash(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ", ")
}
