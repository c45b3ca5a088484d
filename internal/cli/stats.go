package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"retrieval/config"
	"retrieval/internal/adapter/store"
)

var statsTerms []string

// maxPostingsShown caps the postings printed per --term.
const maxPostingsShown = 20

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show statistics of the stored index",
	Long: `Show corpus statistics of the stored index. With --term, also print the
document frequency, both IDF values and the postings of each term, read
directly from the index database.

Examples:
  retrieval stats
  retrieval stats --term covid --term vaccine`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringArrayVarP(&statsTerms, "term", "t", nil, "term to look up (repeatable)")
}

func runStats(cmd *cobra.Command, args []string) error {
	dbPath := config.IndexDBPath(GetRootDir())
	st, err := store.OpenExisting(dbPath)
	if errors.Is(err, store.ErrNoIndex) {
		return fmt.Errorf("no index found. Run 'retrieval index' first")
	}
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	stats, err := st.GetStats()
	if err != nil {
		return err
	}
	info, err := st.GetSchemaInfo()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Index: %s\n", dbPath)
	fmt.Fprintf(out, "  Schema version:  v%d (config %s)\n", info.Version, info.ConfigHash)
	fmt.Fprintf(out, "  Documents:       %d\n", stats.TotalDocs)
	fmt.Fprintf(out, "  Distinct terms:  %d\n", stats.TotalTerms)
	fmt.Fprintf(out, "  Postings:        %d\n", stats.TotalPostings)
	fmt.Fprintf(out, "  Avg doc length:  %.2f\n", stats.AvgDocLen)

	for _, term := range statsTerms {
		rec, ok, err := st.GetTerm(term)
		if err != nil {
			return fmt.Errorf("failed to read term %q: %w", term, err)
		}
		fmt.Fprintf(out, "\nTerm %q:\n", term)
		if !ok {
			fmt.Fprintln(out, "  not in index")
			continue
		}
		fmt.Fprintf(out, "  Document frequency: %d\n", len(rec.Postings))
		fmt.Fprintf(out, "  IDF (tf-idf):       %.6f\n", rec.IDF)
		fmt.Fprintf(out, "  IDF (bm25):         %.6f\n", rec.BM25IDF)
		for i, p := range rec.Postings {
			if i == maxPostingsShown {
				fmt.Fprintf(out, "  ... and %d more\n", len(rec.Postings)-maxPostingsShown)
				break
			}
			if len(p.Positions) > 0 {
				fmt.Fprintf(out, "  %-30s tf=%d positions=%v\n", p.DocID, p.TF, p.Positions)
			} else {
				fmt.Fprintf(out, "  %-30s tf=%d\n", p.DocID, p.TF)
			}
		}
	}
	return nil
}
