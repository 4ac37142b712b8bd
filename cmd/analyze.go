package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spigell/skillsynx/internal/extract"
	"github.com/spigell/skillsynx/internal/pipeline"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyse a résumé file or pasted text",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("file", "f", "", "résumé file (pdf, docx or plain text)")
	analyzeCmd.Flags().StringP("text", "t", "", "résumé text, used when no file is given")
	analyzeCmd.Flags().StringP("role", "r", "", "target role to evaluate the résumé against")
	analyzeCmd.Flags().String("resume-id", "", "link the analysis to a previously stored résumé")
}

func analyze(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	file, _ := cmd.Flags().GetString("file")
	text, _ := cmd.Flags().GetString("text")
	role, _ := cmd.Flags().GetString("role")
	resumeID, _ := cmd.Flags().GetString("resume-id")

	in := pipeline.AnalysisInput{
		Text:       text,
		TargetRole: role,
		ResumeID:   resumeID,
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			logger.Fatal("reading a resume file", zap.Error(err))
		}
		in.Document = &extract.Document{Data: data, Filename: filepath.Base(file)}
	}

	d := buildDeps(ctx, config, logger)
	defer d.Close()

	logger.Info("starting the analysis",
		zap.String("version", version),
		zap.String("user_id", config.UserID),
	)

	run, err := d.analyzer.Run(ctx, pipeline.Session{UserID: config.UserID}, in)
	if err != nil {
		d.Close()
		logger.Fatal("analysis failed", zap.String("run_id", run.ID), zap.Error(err))
	}

	if run.PersistErr != nil {
		logger.Warn("analysis is not saved", zap.Error(run.PersistErr))
	}
	if run.Record != nil {
		logger.Info("analysis saved", zap.String("analysis_id", run.Record.ID))
	}

	// do not bother error since the result has been validated
	pretty, _ := json.MarshalIndent(run.Result, "", "  ")
	logger.Info(string(pretty), zap.String("run_id", run.ID))
}
