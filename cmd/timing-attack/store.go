package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/senadmustafi/Timing-attack/internal/store"
)

var storePath string

// storeCmd manages the SQLite credential store
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the SQLite credential store used by the demo target",
}

var storeInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and seed it with the configured accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		for account, secret := range cfg.Store.Accounts {
			if err := db.Put(cmd.Context(), account, secret); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d accounts into %s\n", len(cfg.Store.Accounts), db.Path())
		return nil
	},
}

var storePutCmd = &cobra.Command{
	Use:   "put [account] [secret]",
	Short: "Set the password of an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Put(cmd.Context(), args[0], args[1])
	},
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the stored accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		all, err := db.All(cmd.Context())
		if err != nil {
			return err
		}
		accounts := make([]string, 0, len(all))
		for account := range all {
			accounts = append(accounts, account)
		}
		sort.Strings(accounts)
		for _, account := range accounts {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t(%d characters)\n", account, len(all[account]))
		}
		return nil
	},
}

func init() {
	storeCmd.PersistentFlags().StringVar(&storePath, "db", "", "SQLite file (default from config or timing-attack.db)")
	storeCmd.AddCommand(storeInitCmd)
	storeCmd.AddCommand(storePutCmd)
	storeCmd.AddCommand(storeListCmd)
}

func openDB() (*store.SQLiteStore, error) {
	path := storePath
	if path == "" {
		path = cfg.Store.Path
	}
	if path == "" {
		path = "timing-attack.db"
	}
	return store.OpenSQLite(path)
}
