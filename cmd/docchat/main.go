// Package main provides the docchat CLI for uploading documents and asking questions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bull/docchat-server/internal/apiclient"
	"github.com/bull/docchat-server/internal/extract"
	ghclient "github.com/bull/docchat-server/internal/github"
)

var (
	serverURL string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "docchat",
	Short:        "Client for the docchat server",
	SilenceUsage: true,
}

var uploadCmd = &cobra.Command{
	Use:   "upload FILE...",
	Short: "Upload local documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUpload,
}

var askCmd = &cobra.Command{
	Use:   "ask QUESTION...",
	Short: "Ask a question about the uploaded documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		answer, err := client().Ask(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

var chatSession string

var chatCmd = &cobra.Command{
	Use:   "chat MESSAGE...",
	Short: "Send a message to the general assistant",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reply, err := client().Chat(cmd.Context(), chatSession, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List chat sessions with history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, err := client().Sessions(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range sessions {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print the extracted text of an uploaded document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := client().Document(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), doc.Text)
		return nil
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize the uploaded documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := client().Summarize(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), summary)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := client().Documents(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(docs) == 0 {
			fmt.Fprintln(out, "No documents uploaded.")
			return nil
		}
		for _, d := range docs {
			fmt.Fprintf(out, "%-40s %8s chars  uploaded %s\n",
				d.ID, humanize.Comma(int64(d.Chars)), humanize.Time(d.UploadedAt))
		}
		return nil
	},
}

var syncOpts struct {
	owner       string
	repo        string
	path        string
	ref         string
	extensions  []string
	concurrency int
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Upload every document found in a GitHub repository directory",
	Long: `Lists the files below --path in a GitHub repository and uploads each
supported document to the server.

Environment variables:
  GITHUB_TOKEN   GitHub token for higher rate limits (optional)`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("DOCCHAT_SERVER", apiclient.DefaultServerURL), "docchat server URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "per-request timeout")

	chatCmd.Flags().StringVar(&chatSession, "session", "", "conversation to continue (default \"general\")")

	syncCmd.Flags().StringVar(&syncOpts.owner, "owner", "", "repository owner (required)")
	syncCmd.Flags().StringVar(&syncOpts.repo, "repo", "", "repository name (required)")
	syncCmd.Flags().StringVar(&syncOpts.path, "path", "", "directory within the repository")
	syncCmd.Flags().StringVar(&syncOpts.ref, "ref", "", "branch, tag or commit (default branch if empty)")
	syncCmd.Flags().StringSliceVar(&syncOpts.extensions, "ext", []string{".pdf"}, "document extensions to upload")
	syncCmd.Flags().IntVar(&syncOpts.concurrency, "concurrency", 4, "parallel downloads")
	_ = syncCmd.MarkFlagRequired("owner")
	_ = syncCmd.MarkFlagRequired("repo")

	rootCmd.AddCommand(uploadCmd, askCmd, chatCmd, sessionsCmd, showCmd, summarizeCmd, listCmd, syncCmd)
}

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func client() *apiclient.Client {
	return apiclient.New(serverURL, timeout)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func runUpload(cmd *cobra.Command, args []string) error {
	c := client()
	out := cmd.OutOrStdout()

	var failed int
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(out, "  - %s: %v\n", path, err)
			failed++
			continue
		}

		msg, err := c.Upload(cmd.Context(), filepath.Base(path), data)
		if err != nil {
			fmt.Fprintf(out, "  - %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "%s (%s)\n", msg, humanize.Bytes(uint64(len(data))))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(args))
	}
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()
	out := cmd.OutOrStdout()

	gh, err := ghclient.NewClient(ctx, "", "")
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}

	registry := extract.NewRegistry(syncOpts.extensions)
	fetcher := ghclient.NewFetcher(gh, syncOpts.owner, syncOpts.repo, syncOpts.path, syncOpts.ref, registry.Supports)

	fmt.Fprintf(out, "Listing %s/%s/%s...\n", syncOpts.owner, syncOpts.repo, syncOpts.path)
	paths, err := fetcher.ListDocs(ctx)
	if err != nil {
		return err
	}
	if sha, err := fetcher.GetLatestCommitSHA(ctx); err == nil {
		fmt.Fprintf(out, "Commit: %s\n", sha)
	}
	fmt.Fprintf(out, "Found %d documents\n\n", len(paths))

	c := client()

	var (
		mu       sync.Mutex
		uploaded int
		bytes    uint64
		failures []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(syncOpts.concurrency, 1))
	for _, p := range paths {
		g.Go(func() error {
			doc, err := fetcher.FetchDoc(gctx, p)
			if err == nil {
				_, err = c.Upload(gctx, doc.Name, doc.Data)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, fmt.Sprintf("%s: %v", p, err))
				return nil
			}
			uploaded++
			bytes += uint64(len(doc.Data))
			fmt.Fprintf(out, "  uploaded %s\n", p)
			return nil
		})
	}
	_ = g.Wait()

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Sync complete!")
	fmt.Fprintf(out, "  Documents: %d/%d\n", uploaded, len(paths))
	fmt.Fprintf(out, "  Size: %s\n", humanize.Bytes(bytes))
	fmt.Fprintf(out, "  Duration: %s\n", time.Since(start).Round(time.Millisecond))

	if len(failures) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Failed documents:")
		for _, f := range failures {
			fmt.Fprintf(out, "  - %s\n", f)
		}
		return fmt.Errorf("%d documents failed", len(failures))
	}
	return nil
}
