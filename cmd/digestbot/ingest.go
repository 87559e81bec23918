package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"digestbot/rssfeeds"
)

var (
	ingestUser  string
	ingestFeed  string
	ingestCount int
)

// ingestCmd fills a library from a feed
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Save the latest entries of an RSS feed into a user's library",
	Long: `Fetches a feed, extracts readable content for each entry and saves the
entries as library items. --feed accepts a URL or a preset name.

Example:
  digestbot ingest --user 3f6a... --feed techcrunch --count 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		res, err := rssfeeds.NewIngester(store, logger).Ingest(cmd.Context(), ingestUser, ingestFeed, ingestCount)
		if err != nil {
			return err
		}
		logger.Info("Feed ingested",
			zap.String("feed", res.FeedURL),
			zap.Int("saved", res.Saved),
			zap.Int("failed", res.Failed),
		)

		raw, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return err
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestUser, "user", "", "user id owning the saved items")
	ingestCmd.Flags().StringVar(&ingestFeed, "feed", rssfeeds.DefaultFeedPreset, "feed URL or preset name")
	ingestCmd.Flags().IntVar(&ingestCount, "count", rssfeeds.DefaultCount, "maximum entries to ingest")
	_ = ingestCmd.MarkFlagRequired("user")
}
