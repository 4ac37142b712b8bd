package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spigell/skillsynx/internal/analysis"
	"github.com/spigell/skillsynx/internal/pipeline"
	"github.com/spigell/skillsynx/internal/store"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Suggest job openings for a stored analysis or plain preferences",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("analysis", "a", "", "id of a stored analysis to seed the search")
	matchCmd.Flags().BoolP("pick", "p", false, "choose a stored analysis interactively")
	matchCmd.Flags().StringP("role", "r", "", "target role")
	matchCmd.Flags().StringP("location", "l", "", "preferred location")
	matchCmd.Flags().StringP("salary", "s", "", "expected salary")
	matchCmd.Flags().StringP("resume", "f", "", "plain text résumé used as summary when no analysis is given")
	matchCmd.Flags().IntP("count", "n", analysis.DefaultJobCount, fmt.Sprintf("number of listings to request (at most %d)", analysis.MaxJobCount))
	matchCmd.Flags().StringSlice("no-filter", nil, "filters to skip for this search (dedupe, excluded_companies, min_score)")
}

func match(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	analysisID, _ := cmd.Flags().GetString("analysis")
	pick, _ := cmd.Flags().GetBool("pick")
	role, _ := cmd.Flags().GetString("role")
	location, _ := cmd.Flags().GetString("location")
	salary, _ := cmd.Flags().GetString("salary")
	resumeFile, _ := cmd.Flags().GetString("resume")
	count, _ := cmd.Flags().GetInt("count")
	noFilter, _ := cmd.Flags().GetStringSlice("no-filter")

	config.Filters.Disabled = append(config.Filters.Disabled, noFilter...)

	d := buildDeps(ctx, config, logger)
	defer d.Close()

	in := pipeline.MatchInput{
		Preferences: analysis.Preferences{TargetRole: role, Location: location, Salary: salary},
		Count:       count,
	}

	if resumeFile != "" {
		data, err := os.ReadFile(resumeFile)
		if err != nil {
			logger.Fatal("reading a resume file", zap.Error(err))
		}
		in.ResumeText = string(data)
	}

	if pick || analysisID != "" {
		if d.store == nil {
			logger.Fatal("persistence is disabled", zap.String("hint", "set store.backend to fs or s3"))
		}

		record, err := selectRecord(ctx, d.store, config.UserID, analysisID)
		if err != nil {
			logger.Fatal("selecting an analysis", zap.Error(err))
		}

		var result analysis.Result
		if err := record.DecodeResult(&result); err != nil {
			logger.Fatal("decoding the stored analysis", zap.String("analysis_id", record.ID), zap.Error(err))
		}
		in.Analysis = &result

		logger.Info("matching with the stored analysis", zap.String("analysis_id", record.ID))
	}

	run, err := d.matcher.Run(ctx, pipeline.Session{UserID: config.UserID}, in)
	if err != nil {
		d.Close()
		logger.Fatal("matching failed", zap.String("run_id", run.ID), zap.Error(err))
	}

	if len(run.Jobs) == 0 {
		logger.Info("exiting", zap.String("reason", "no listings left after filters"))
		return
	}

	pretty, _ := json.MarshalIndent(run.Jobs, "", "  ")
	logger.Info(string(pretty), zap.Int("listings count", len(run.Jobs)))
}

// selectRecord loads the analysis by id or, when id is empty, asks the user
// to choose one.
func selectRecord(ctx context.Context, gateway store.Gateway, userID, id string) (*store.Record, error) {
	if id = strings.TrimSpace(id); id != "" {
		return gateway.GetAnalysis(ctx, userID, id)
	}

	records, err := gateway.ListAnalyses(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("there are no stored analyses, run analyze first")
	}

	items := make([]string, 0, len(records))
	for _, rec := range records {
		items = append(items, describeRecord(rec))
	}

	analysisPrompt := promptui.Select{
		Label: "Choose an analysis and press ENTER",
		Items: items,
		Size:  10,
	}

	idx, _, err := analysisPrompt.Run()
	if err != nil {
		return nil, err
	}

	return &records[idx], nil
}
