package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd applies pending library migrations
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending library database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		logger.Info("Library migrations applied", zap.String("path", cfg.DatabasePath))
		return store.Close()
	},
}
