package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okarvonen/scholarscout/internal/config"
	"github.com/okarvonen/scholarscout/internal/domain"
	"github.com/okarvonen/scholarscout/internal/ranking"
	"github.com/okarvonen/scholarscout/internal/search"
	"github.com/okarvonen/scholarscout/internal/sources/crossref"
	"github.com/okarvonen/scholarscout/internal/sources/jufo"
	"github.com/okarvonen/scholarscout/internal/store"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search for articles and save the results",
	Long: `Search queries Crossref for articles matching the given keywords,
enriches each hit with a JUFO journal quality level, and saves the merged,
sorted result set to the blob store the same way the server does.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("keywords", "", "search keywords (required)")
	searchCmd.Flags().String("year-range", "all", "publication year filter (e.g. 2018-2024, or all)")
	searchCmd.Flags().Int("target-jufo", 0, "stop paging once this many JUFO 2/3 articles are found")
	searchCmd.Flags().Int("pages", 1, "maximum number of result pages to fetch")
	searchCmd.Flags().Bool("json", false, "print results as JSON")
	_ = searchCmd.MarkFlagRequired("keywords")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	keywords, _ := cmd.Flags().GetString("keywords")
	yearRange, _ := cmd.Flags().GetString("year-range")
	targetJufo, _ := cmd.Flags().GetInt("target-jufo")
	maxPages, _ := cmd.Flags().GetInt("pages")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := cliLogger(cmd)

	ctx := cmd.Context()
	blobs, cleanup, err := openBlobStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	crossrefClient := crossref.New(crossref.Config{
		BaseURL:   cfg.Crossref.BaseURL,
		MailTo:    cfg.Crossref.MailTo,
		Timeout:   cfg.Crossref.Timeout,
		RateLimit: cfg.Crossref.RateLimit,
		BurstSize: cfg.Crossref.BurstSize,
	})
	jufoClient := jufo.New(jufo.Config{
		BaseURL:       cfg.Jufo.BaseURL,
		SearchTimeout: cfg.Jufo.SearchTimeout,
		DetailTimeout: cfg.Jufo.DetailTimeout,
		RateLimit:     cfg.Jufo.RateLimit,
		BurstSize:     cfg.Jufo.BurstSize,
	})

	cache := ranking.NewCache(blobs, cfg.Search.CacheWriteQueue, logger, nil)
	defer cache.Close()
	resolver := ranking.NewResolver(jufoClient, cache, logger, nil)
	searcher := search.NewSearcher(crossrefClient, cfg.Search.SearchTimeout, logger)
	processor := search.NewProcessor(
		searcher,
		resolver,
		cfg.Search.EnrichBatchSize,
		cfg.Search.EnrichItemTimeout,
		logger,
		nil,
	)

	pageSize := cfg.Search.InitialPageSize
	var results []domain.Article
	offset := 0
	for page := 0; page < maxPages; page++ {
		batch, hasMore, _ := processor.ProcessBatch(ctx, keywords, offset, pageSize, yearRange, targetJufo)
		results = append(results, search.UniqueAdditions(results, batch)...)
		offset += pageSize
		if !hasMore {
			break
		}
	}
	search.SortArticles(results)

	resultStore := store.NewResultStore(blobs, logger)
	id, err := resultStore.SaveResults(ctx, keywords, results)
	if err != nil {
		return fmt.Errorf("save results: %w", err)
	}

	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(results)
	}
	printArticles(results)
	fmt.Printf("\n%d articles (%d JUFO 2/3), saved as %s\n",
		len(results), search.CountHighQuality(results), id)
	return nil
}

// printArticles writes a human-readable listing to stdout.
func printArticles(articles []domain.Article) {
	for _, a := range articles {
		level := "-"
		if a.Level != nil {
			level = fmt.Sprintf("%d", *a.Level)
		}
		fmt.Printf("[%s] %s (%s, %s)\n    %s\n", level, a.Title, a.Journal, a.Year, a.Link)
	}
}
