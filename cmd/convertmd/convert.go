// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/meshint/convertmd/internal/batch"
	"github.com/meshint/convertmd/internal/container"
	"github.com/meshint/convertmd/internal/convert"
	"github.com/meshint/convertmd/pkg/types"
)

const defaultArchiveName = "converted_markdown_files.zip"

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert document files to Markdown",
	Long: `Convert transforms documents into Markdown via the markitdown container.
One file writes <stem>.md next to it (or at --out). Multiple files are
converted in parallel and packaged into a single ZIP archive; files that
fail are listed in the summary and, with --report, in a YAML report.

A batch with partial failures still succeeds: whatever converted is in the
archive. The command only exits non-zero when every file failed.`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().Int("workers", 0, "conversion worker pool size (default: available parallelism, capped at 5)")
	convertCmd.Flags().Duration("timeout", convert.DefaultTimeout, "per-file conversion timeout")
	convertCmd.Flags().String("out", "", "output path (.md file for one input, .zip for many)")
	convertCmd.Flags().String("report", "", "write the batch report as YAML to this path")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more document files to convert")
	}

	workers, _ := cmd.Flags().GetInt("workers")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	outPath, _ := cmd.Flags().GetString("out")
	reportPath, _ := cmd.Flags().GetString("report")

	files, err := readInputFiles(args)
	if err != nil {
		return err
	}

	rt, err := container.DetectRuntime()
	if err != nil {
		return err
	}
	conv, err := convert.NewMarkitdownConverter(rt)
	if err != nil {
		return err
	}

	adapter := convert.NewAdapter(conv, timeout)
	pipeline := batch.NewPipeline(adapter, workers, nil)

	if len(files) == 1 {
		return convertSingle(cmd, pipeline, files[0], outPath, reportPath)
	}
	return convertBatch(cmd, pipeline, files, outPath, reportPath)
}

// readInputFiles loads every argument into memory up front, so a missing or
// unreadable path fails the command before any conversion starts.
func readInputFiles(paths []string) ([]types.NamedFile, error) {
	files := make([]types.NamedFile, len(paths))
	for i, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading input %s: %w", p, err)
		}
		files[i] = types.NamedFile{Name: filepath.Base(p), Content: content}
	}
	return files, nil
}

func convertSingle(cmd *cobra.Command, pipeline *batch.Pipeline, file types.NamedFile, outPath, reportPath string) error {
	md, out := pipeline.RunSingle(cmd.Context(), file)

	report := types.BatchReport{Total: 1, Succeeded: []string{}, Failed: []types.FailedFile{}}
	if out.Succeeded() {
		report.Succeeded = append(report.Succeeded, mdName(file.Name))
	} else {
		report.Failed = append(report.Failed, types.FailedFile{
			Name:   out.Name,
			Reason: out.Failure.Reason,
			Detail: out.Failure.Detail,
		})
	}
	if err := writeReport(reportPath, report); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if !out.Succeeded() {
		fmt.Fprintf(w, "failed:  %s (%s: %s)\n", out.Name, out.Failure.Reason, out.Failure.Detail)
		return fmt.Errorf("conversion failed")
	}

	if outPath == "" {
		outPath = mdName(file.Name)
	}
	if err := os.WriteFile(outPath, []byte(md), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	fmt.Fprintf(w, "converted: %s -> %s\n", file.Name, outPath)
	return nil
}

func convertBatch(cmd *cobra.Command, pipeline *batch.Pipeline, files []types.NamedFile, outPath, reportPath string) error {
	w := cmd.OutOrStdout()
	progress := func(completed, total int) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Completed %d/%d files...\n", completed, total)
	}

	archive, report, err := pipeline.Run(cmd.Context(), files, progress)
	if err != nil {
		return err
	}
	if err := writeReport(reportPath, report); err != nil {
		return err
	}

	printBatchSummary(w, report)

	if report.AllFailed() {
		return fmt.Errorf("no files could be converted")
	}

	if outPath == "" {
		outPath = defaultArchiveName
	}
	if err := os.WriteFile(outPath, archive, 0o644); err != nil {
		return fmt.Errorf("writing archive %s: %w", outPath, err)
	}
	fmt.Fprintf(w, "archive: %s\n", outPath)
	return nil
}

func printBatchSummary(w io.Writer, report types.BatchReport) {
	for _, name := range report.Succeeded {
		fmt.Fprintf(w, "converted: %s\n", name)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(w, "failed:  %s (%s: %s)\n", f.Name, f.Reason, f.Detail)
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d failed (total: %d)\n",
		report.SucceededCount(), len(report.Failed), report.Total)
}

// writeReport marshals the report as YAML when a path was given.
func writeReport(path string, report types.BatchReport) error {
	if path == "" {
		return nil
	}
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

// mdName replaces a filename's extension with the Markdown output extension.
func mdName(name string) string {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "document"
	}
	return stem + batch.OutputExt
}
