// Package main provides the tgvault operational CLI: inspecting the pending
// queue, the content registry, and the per-chat ledgers.
//
// Scanning and downloading run in-process of the bot that owns the messaging
// client session; this binary only works against the durable files, which is
// safe from a second process because every access goes through the file lock.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/tgvault/internal/config"
	"github.com/kimhsiao/tgvault/internal/lockfile"
	"github.com/kimhsiao/tgvault/internal/logging"
	"github.com/kimhsiao/tgvault/internal/store"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	cfgPath string
	cfg     config.Config
	st      *store.Store
)

var rootCmd = &cobra.Command{
	Use:     "tgvault",
	Short:   "Inspect the tgvault download queue and catalogs",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		logging.Init(os.Stderr, cfg.LogLevel)
		st = store.New(store.Paths{
			Queue:     cfg.QueuePath(),
			Registry:  cfg.RegistryPath(),
			LedgerDir: cfg.LedgerDir(),
		}, lockfile.Options{
			Retries: cfg.Lock.Retries,
			Backoff: cfg.Lock.Backoff.Std(),
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if st != nil {
			st.Close()
		}
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue and registry counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		queue, err := st.ReadPendingQueue()
		if err != nil {
			return err
		}
		records, err := st.ReadRegistry()
		if err != nil {
			return err
		}

		retrying := 0
		for _, job := range queue {
			if job.RetryCount > 0 {
				retrying++
			}
		}

		fmt.Printf("pending jobs:     %d (%d retrying)\n", len(queue), retrying)
		fmt.Printf("registry entries: %d\n", len(records))
		return nil
	},
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List pending download jobs in dequeue order",
	RunE: func(cmd *cobra.Command, args []string) error {
		queue, err := st.ReadPendingQueue()
		if err != nil {
			return err
		}
		if len(queue) == 0 {
			fmt.Println("queue is empty")
			return nil
		}

		fmt.Printf("%-6s %-12s %-10s %-8s %s\n", "SEQ", "CHAT", "MESSAGE", "RETRIES", "TYPE")
		for _, job := range queue {
			fmt.Printf("%-6d %-12s %-10d %d/%-6d %s\n",
				job.SequenceNumber, job.ChatID, job.MessageID,
				job.RetryCount, job.MaxRetries, job.MediaType)
		}
		return nil
	},
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger <chatID>",
	Short: "List a chat's completed downloads",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := st.ReadLedger(args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no completed downloads for this chat")
			return nil
		}

		fmt.Printf("%-6s %-10s %-10s %s\n", "REG", "MESSAGE", "TYPE", "FILE")
		for _, entry := range entries {
			fmt.Printf("%-6d %-10d %-10s %s\n",
				entry.RegistryID, entry.MessageID, entry.MediaType, entry.StoredFileName)
		}
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "tgvault.yaml", "path to the config file")
	rootCmd.AddCommand(statusCmd, jobsCmd, ledgerCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
