package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/brentwalther/jcf-sub000/internal/accounts"
	"github.com/brentwalther/jcf-sub000/internal/config"
	"github.com/brentwalther/jcf-sub000/internal/gitops"
	"github.com/brentwalther/jcf-sub000/internal/journal"
	"github.com/brentwalther/jcf-sub000/internal/model"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	var name string
	var chart string
	var noGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledger repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.repo
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir, name, chart, !noGit)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "ledger name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&chart, "chart", "household", "starting chart of accounts (household or minimal)")
	cmd.Flags().BoolVar(&noGit, "no-git", false, "do not create a git repository")

	return cmd
}

func runInit(out io.Writer, dir, name, chart string, useGit bool) error {
	if _, err := os.Stat(config.Path(dir)); err == nil {
		return fmt.Errorf("%s already contains %s", dir, config.FileName)
	}
	if chart != "household" && chart != "minimal" {
		return fmt.Errorf("unknown chart %q; use household or minimal", chart)
	}
	if useGit && !gitops.Available() {
		return fmt.Errorf("git not found on PATH; rerun with --no-git")
	}

	dirs := []string{
		"accounts",
		"logs",
		"import",
		filepath.Join("import", "processed"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	cfg := config.Default(name)
	cfg.Ledger.Chart = chart
	cfg.Git.AutoCommit = useGit
	if err := config.Save(config.Path(dir), cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	b := model.NewBuilder()
	for _, a := range accounts.DefaultChart(chart) {
		b.AddAccount(a)
	}
	if err := journal.NewService(dir).Save(b.Build()); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}

	gitignore := "exports/\nlogs/\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "import", ".gitkeep"), []byte{}, 0o644); err != nil {
		return fmt.Errorf("writing .gitkeep: %w", err)
	}

	if !useGit {
		fmt.Fprintf(out, "Initialized jcf ledger at %s\n", dir)
		return nil
	}
	if err := gitops.Init(dir, io.Discard); err != nil {
		return err
	}
	hash, err := gitops.CommitAll(dir, "init: Initialize "+name, cfg.Git.AuthorName, cfg.Git.AuthorEmail)
	if err != nil {
		return fmt.Errorf("initial commit: %w", err)
	}

	fmt.Fprintf(out, "Initialized jcf ledger at %s (%s)\n", dir, hash)
	return nil
}
