package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/ahmednasr/recruiter-bot/internal/app"
	"github.com/ahmednasr/recruiter-bot/internal/config"
	"github.com/ahmednasr/recruiter-bot/internal/github"
	"github.com/ahmednasr/recruiter-bot/internal/models"
	"github.com/ahmednasr/recruiter-bot/internal/service"
)

var rootCmd = &cobra.Command{
	Use:           "recruiter",
	Short:         "Assess GitHub candidates from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newToolsCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "recruiter: %v\n", err)
		os.Exit(1)
	}
}

func newChatCmd() *cobra.Command {
	var (
		conversation string
		plain        bool
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				log.SetOutput(io.Discard)
			}
			cfg := config.Load()
			ctx := cmd.Context()

			engine, err := app.NewVertex(ctx, cfg)
			if err != nil {
				return err
			}
			defer engine.Close()

			core, err := app.New(ctx, cfg, engine)
			if err != nil {
				return err
			}
			defer core.Close()

			in, err := newLineReader(os.Stdin, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer in.Close()

			r := &repl{
				chat:         core.Chat,
				in:           in,
				out:          in.Writer(),
				conversation: conversation,
				plain:        plain,
				timeout:      cfg.TurnTimeout,
			}
			return r.run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&conversation, "conversation", "terminal", "conversation id; reuse it to continue a stored session")
	flags.BoolVar(&plain, "plain", false, "strip Markdown markers from answers")
	flags.BoolVar(&verbose, "verbose", false, "print component logs to stderr")
	return cmd
}

func newInspectCmd() *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Query GitHub through the aggregator without the assistant",
	}
	cmd.PersistentFlags().StringVar(&formatFlag, "format", "table", "output format: table or json")

	aggregator := func() *github.Aggregator {
		log.SetOutput(io.Discard)
		agg, _ := app.NewAggregator(config.Load())
		return agg
	}

	profile := &cobra.Command{
		Use:   "profile <user>",
		Short: "Show a profile summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := resolveHandle(args[0])
			if err != nil {
				return err
			}
			p, err := aggregator().FetchProfile(cmd.Context(), h)
			if err != nil {
				return err
			}
			return writeProfile(cmd.OutOrStdout(), p, formatFlag)
		},
	}

	var maxCount int
	repos := &cobra.Command{
		Use:   "repos <user>",
		Short: "List repositories ranked by activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := resolveHandle(args[0])
			if err != nil {
				return err
			}
			list, err := aggregator().ListRepositories(cmd.Context(), h, maxCount)
			if err != nil {
				return err
			}
			return writeRepositories(cmd.OutOrStdout(), list, formatFlag)
		},
	}
	repos.Flags().IntVar(&maxCount, "max", 10, "maximum repositories to show")

	var depth, entries int
	tree := &cobra.Command{
		Use:   "tree <owner/repo>",
		Short: "Show a depth-bounded file tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := github.ResolveRepository(args[0], "")
			if err != nil {
				return err
			}
			agg := aggregator()
			if depth < 0 {
				depth = agg.Limits().TreeMaxDepth
			}
			t, err := agg.FetchTree(cmd.Context(), ref, depth, entries)
			if err != nil {
				return err
			}
			return writeTree(cmd.OutOrStdout(), t, formatFlag)
		},
	}
	tree.Flags().IntVar(&depth, "depth", -1, "directory levels below the root (default from TREE_MAX_DEPTH)")
	tree.Flags().IntVar(&entries, "entries", 0, "maximum nodes (default from TREE_MAX_ENTRIES)")

	var maxChars int
	snippet := &cobra.Command{
		Use:   "snippet <owner/repo> <path>",
		Short: "Print the beginning of a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := github.ResolveRepository(args[0], "")
			if err != nil {
				return err
			}
			s, err := aggregator().FetchSnippet(cmd.Context(), ref, strings.Trim(args[1], "/"), maxChars)
			if err != nil {
				return err
			}
			return writeSnippet(cmd.OutOrStdout(), s, formatFlag)
		},
	}
	snippet.Flags().IntVar(&maxChars, "max-chars", 0, "maximum characters (default from SNIPPET_MAX_CHARS)")

	cmd.AddCommand(profile, repos, tree, snippet)
	return cmd
}

func newToolsCmd() *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Show the tool catalog offered to the reasoning engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.SetOutput(io.Discard)
			agg, _ := app.NewAggregator(config.Load())
			reg := service.NewToolRegistry(agg, agg.Limits())
			return writeTools(cmd.OutOrStdout(), reg.Specs(), formatFlag)
		},
	}
	cmd.Flags().StringVar(&formatFlag, "format", "table", "output format: table or json")
	return cmd
}

// resolveHandle accepts anything the resolver does, including a repository
// URL, whose owner is used.
func resolveHandle(arg string) (models.Handle, error) {
	h, err := github.ResolveHandle(arg)
	if err == nil {
		return h, nil
	}
	var re *github.ResolutionError
	if errors.As(err, &re) && re.Kind == github.ResolutionAmbiguousTarget {
		return models.Handle(re.Handle), nil
	}
	return "", err
}
