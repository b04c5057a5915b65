package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/chirpolly/internal/content"
	"github.com/example/chirpolly/internal/excel"
	srs "github.com/example/chirpolly/internal/spaced_repetition"
)

var (
	importOut      string
	importSheet    string
	importLanguage string

	learnerID int64
	dueLimit  int

	snapshotFile     string
	snapshotLanguage string
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.xlsx|file.csv>",
		Short: "Import lesson units from a spreadsheet into a content catalog",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
	cmd.Flags().StringVar(&importOut, "out", "content/catalog.yaml", "catalog file to create or extend (.yaml, .yml or .json)")
	cmd.Flags().StringVar(&importSheet, "sheet", "", "sheet to read (default: the first sheet)")
	cmd.Flags().StringVar(&importLanguage, "lang", "", "language code for rows without one")
	return cmd
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	catalog, err := content.Load(importOut)
	if errors.Is(err, fs.ErrNotExist) {
		catalog, err = content.New(), nil
	}
	if err != nil {
		return err
	}

	importCfg := excel.DefaultImportConfig()
	importCfg.FilePath = args[0]
	importCfg.SheetName = importSheet
	importCfg.DefaultLanguage = importLanguage

	result, err := excel.ImportCatalog(importCfg, catalog)
	if err != nil {
		return err
	}
	if err := catalog.Save(importOut); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processed %d rows: %d created, %d updated, %d skipped\n",
		result.TotalProcessed, result.Created, result.Updated, result.Skipped)
	for _, e := range result.Errors {
		fmt.Fprintln(out, "  "+e)
	}
	fmt.Fprintf(out, "Catalog written to %s\n", importOut)
	return nil
}

func addLearnerFlag(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&learnerID, "learner", 0, "learner (Telegram user) ID")
	_ = cmd.MarkFlagRequired("learner")
}

func newDueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List a learner's due words in review order",
		Args:  cobra.NoArgs,
		RunE:  runDueCmd,
	}
	addLearnerFlag(cmd)
	cmd.Flags().IntVar(&dueLimit, "limit", 0, "maximum number of words (0: all)")
	return cmd
}

func runDueCmd(cmd *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		items, err := a.review.Due(ctx, learnerID, dueLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, "Nothing is due.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WORD\tMEANING\tINTERVAL\tEASE\tDUE")
		for _, it := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n", it.Word, it.Meaning,
				srs.FormatInterval(it.Interval), it.EaseFactor, it.DueDate.Format(time.DateTime))
		}
		return w.Flush()
	})
}

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export or import a learner's collection as a JSON snapshot",
	}
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the collection to --file (default: stdout)",
		Args:  cobra.NoArgs,
		RunE:  runSnapshotExportCmd,
	}
	addLearnerFlag(export)
	export.Flags().StringVar(&snapshotFile, "file", "", "output file")

	imp := &cobra.Command{
		Use:   "import",
		Short: "Replace the collection with the snapshot in --file",
		Args:  cobra.NoArgs,
		RunE:  runSnapshotImportCmd,
	}
	addLearnerFlag(imp)
	imp.Flags().StringVar(&snapshotFile, "file", "", "snapshot file")
	imp.Flags().StringVar(&snapshotLanguage, "lang", "", "language code for records without one")
	_ = imp.MarkFlagRequired("file")

	cmd.AddCommand(export, imp)
	return cmd
}

func runSnapshotExportCmd(cmd *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		data, err := a.review.Export(ctx, learnerID)
		if err != nil {
			return err
		}
		if snapshotFile == "" {
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		}
		return os.WriteFile(snapshotFile, data, 0o644)
	})
}

func runSnapshotImportCmd(cmd *cobra.Command, _ []string) error {
	f, err := os.Open(snapshotFile)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return withApp(func(ctx context.Context, a *app) error {
		n, err := a.review.Import(ctx, learnerID, snapshotLanguage, data)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items for learner %d\n", n, learnerID)
		return nil
	})
}

func newRebuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Recompute a learner's schedule from the review history",
		Args:  cobra.NoArgs,
		RunE:  runRebuildCmd,
	}
	addLearnerFlag(cmd)
	return cmd
}

func runRebuildCmd(cmd *cobra.Command, _ []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		n, err := a.review.Rebuild(ctx, learnerID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt %d items for learner %d\n", n, learnerID)
		return nil
	})
}

// withApp runs fn against a freshly opened app and closes it afterwards.
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()
	a, err := openApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
