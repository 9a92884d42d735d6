package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"clarity-workers/internal/analysis"
	"clarity-workers/internal/catalog"
	"clarity-workers/internal/document"
	"clarity-workers/internal/session"
)

type renderOptions struct {
	answersPath string
	outputID    string
	locale      string
	format      string
	outPath     string
}

func renderCmd(opts *rootOptions) *cobra.Command {
	ro := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a document from an answers file",
		Long: `Render builds a session from a JSON object of question id to answer,
runs the built-in analyzers and writes the converted document.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts, ro)
		},
	}
	cmd.Flags().StringVarP(&ro.answersPath, "answers", "a", "", "JSON file mapping question ids to answers")
	cmd.Flags().StringVar(&ro.outputID, "output", "", "Output id (default product brief)")
	cmd.Flags().StringVar(&ro.locale, "locale", "", "Output language")
	cmd.Flags().StringVarP(&ro.format, "format", "f", "html", "html, md, docx or pdf")
	cmd.Flags().StringVarP(&ro.outPath, "out", "o", "", "Write to file instead of stdout")
	cmd.MarkFlagRequired("answers")
	return cmd
}

func runRender(cmd *cobra.Command, opts *rootOptions, ro *renderOptions) error {
	ctx := cmd.Context()
	log := opts.logger()

	raw, err := os.ReadFile(ro.answersPath)
	if err != nil {
		return err
	}
	var answers map[string]interface{}
	if err := json.Unmarshal(raw, &answers); err != nil {
		return fmt.Errorf("parse %s: %w", ro.answersPath, err)
	}

	lookup, err := catalog.Load(ctx, catalog.NewFileSource(opts.catalogDir), log)
	if err != nil {
		return err
	}

	now := time.Now()
	bp, _ := lookup.Blueprint("")
	s := session.StartNew(bp.ID, bp.Version, now)
	for _, q := range lookup.Questions() {
		if v, ok := answers[q.ID]; ok {
			s = session.RecordAnswer(s, q.ID, v, "", now)
		}
	}
	if ro.locale != "" {
		s = session.SetOutputLanguage(s, ro.locale, now)
	}

	report := analysis.NewAggregator(log, analysis.DefaultAnalyzers(nil, log)...).Run(ctx, s, lookup)
	s, _ = session.ApplyAnalysis(s, report.Generation, report.Inferences, now)
	for _, w := range report.Warnings {
		log.Warn("Analysis warning", map[string]interface{}{"warning": w})
	}

	gen := document.NewGenerator(document.NewAdapter(document.StubTranslator{}, document.NewMemoryCache(), log), log)

	var content []byte
	if ro.format == "html" {
		out, err := gen.Generate(ctx, s, lookup, ro.outputID)
		if err != nil {
			return err
		}
		content = []byte(out.HTML)
	} else {
		exp, err := gen.Export(ctx, s, lookup, ro.outputID, ro.format)
		if err != nil {
			return err
		}
		if exp.Placeholder {
			return fmt.Errorf("%s export is not available yet", ro.format)
		}
		content = []byte(exp.Text)
	}

	if ro.outPath == "" {
		_, err = cmd.OutOrStdout().Write(content)
		return err
	}
	return os.WriteFile(ro.outPath, content, 0o644)
}
