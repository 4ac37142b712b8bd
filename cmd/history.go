package cmd

import (
	"context"
	"fmt"

	"github.com/spigell/skillsynx/internal/analysis"
	"github.com/spigell/skillsynx/internal/store"
	"github.com/spigell/skillsynx/internal/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const summaryLabelLength = 60

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored analyses, newest first",
	Run: func(_ *cobra.Command, _ []string) {
		history()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func history() {
	ctx := context.Background()
	logger, config := setup()

	gateway, err := newStore(ctx, config.Store, logger)
	if err != nil {
		logger.Fatal("building store", zap.Error(err))
	}
	if gateway == nil {
		logger.Fatal("persistence is disabled", zap.String("hint", "set store.backend to fs or s3"))
	}

	records, err := gateway.ListAnalyses(ctx, config.UserID)
	if err != nil {
		logger.Fatal("listing analyses", zap.Error(err))
	}

	logger.Info("stored analyses", zap.String("user_id", config.UserID), zap.Int("count", len(records)))
	for _, rec := range records {
		logger.Info(describeRecord(rec))
	}
}

// describeRecord renders a one line label for a stored analysis.
func describeRecord(rec store.Record) string {
	var result analysis.Result
	if err := rec.DecodeResult(&result); err != nil {
		return fmt.Sprintf("%s %s (unreadable result)", rec.ID, rec.AnalyzedAt.Format("2006-01-02 15:04"))
	}

	score := "n/a"
	if result.ATSScore != nil {
		score = fmt.Sprintf("%d", *result.ATSScore)
	}

	return fmt.Sprintf("%s %s / ats %s / %s",
		rec.ID,
		rec.AnalyzedAt.Format("2006-01-02 15:04"),
		score,
		utils.TruncateForLog(result.Summary, summaryLabelLength),
	)
}
