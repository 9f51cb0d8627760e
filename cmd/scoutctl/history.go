package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okarvonen/scholarscout/internal/config"
	"github.com/okarvonen/scholarscout/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect stored search history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved searches, newest first",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <search-id>",
	Short: "Show the results of a saved search",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyExportCmd = &cobra.Command{
	Use:   "export <search-id>",
	Short: "Export a saved search as CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryExport,
}

func init() {
	historyShowCmd.Flags().Bool("json", false, "print results as JSON")
	historyExportCmd.Flags().String("out", "", "output file (default: stdout)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}

// openResultStore loads configuration and opens the result store over the
// configured blob backend.
func openResultStore(cmd *cobra.Command) (*store.ResultStore, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := cliLogger(cmd)
	blobs, cleanup, err := openBlobStore(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return store.NewResultStore(blobs, logger), cleanup, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	resultStore, cleanup, err := openResultStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	history, err := resultStore.History(cmd.Context())
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if len(history) == 0 {
		fmt.Println("no saved searches")
		return nil
	}
	for _, entry := range history {
		fmt.Printf("%s  %-40q  %d results\n", entry.Timestamp, entry.Keywords, entry.Count)
		fmt.Printf("    id: %s\n", entry.ID)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	resultStore, cleanup, err := openResultStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := resultStore.Results(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return json.NewEncoder(os.Stdout).Encode(results)
	}
	printArticles(results)
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	resultStore, cleanup, err := openResultStore(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := resultStore.Results(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}

	out := os.Stdout
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	w := csv.NewWriter(out)
	if err := w.Write([]string{"journal", "level", "link", "raw_info", "title", "year"}); err != nil {
		return err
	}
	for _, a := range results {
		level := ""
		if a.Level != nil {
			level = fmt.Sprintf("%d", *a.Level)
		}
		if err := w.Write([]string{a.Journal, level, a.Link, a.RawInfo, a.Title, a.Year}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
