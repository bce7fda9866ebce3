package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"qabot/config"
	"qabot/internal/adapter/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the embedding cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show embedding cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openCacheStore()
		if err != nil {
			return err
		}
		defer st.Close()

		count, err := st.Count()
		if err != nil {
			return err
		}
		info, err := st.GetSchemaInfo()
		if err != nil {
			return err
		}

		fmt.Printf("Embedding cache: %s\n", config.CacheDBPath(GetRootDir()))
		fmt.Printf("  Vectors:        %d\n", count)
		if info != nil {
			fmt.Printf("  Schema version: %d\n", info.Version)
			current := store.ComputeConfigHash(GetConfig())
			state := "current"
			if info.ConfigHash != current {
				state = "stale (next index run clears it)"
			}
			fmt.Printf("  Config:         %s\n", state)
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all cached embeddings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openCacheStore()
		if err != nil {
			return err
		}
		defer st.Close()

		count, err := st.Count()
		if err != nil {
			return err
		}
		if err := st.Clear(); err != nil {
			return err
		}
		fmt.Printf("Removed %d cached vectors.\n", count)
		return nil
	},
}

func openCacheStore() (*store.BoltStore, error) {
	if err := config.EnsureDataDir(GetRootDir()); err != nil {
		return nil, err
	}
	st, err := store.NewBoltStore(config.CacheDBPath(GetRootDir()))
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	return st, nil
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}
