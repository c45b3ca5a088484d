package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"retrieval/internal/adapter/retriever"
	"retrieval/internal/usecase"
)

var (
	queryText     string
	queryModel    string
	queryExpand   bool
	querySynonyms string
	queryTopN     int
	queryJSON     bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a single ad-hoc query against the index",
	Long: `Rank documents for one whitespace-tokenized query. The text is split on
whitespace only; it must already be normalized like the corpus.

Examples:
  retrieval query -q "covid vaccine trial"
  retrieval query -q "covid origin" --expand --top-n 5 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	addScoringFlags(queryCmd, &queryModel, &queryExpand, &querySynonyms, &queryTopN)
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

type queryOutput struct {
	Query    string              `json:"query"`
	Model    string              `json:"model"`
	Expanded []string            `json:"expanded,omitempty"`
	Results  []queryOutputResult `json:"results"`
}

type queryOutputResult struct {
	Rank  int     `json:"rank"`
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	root := GetRootDir()

	if err := applyScoringFlags(cmd, cfg, queryModel, queryExpand, querySynonyms, queryTopN); err != nil {
		return err
	}

	tokens := strings.Fields(queryText)
	if len(tokens) == 0 {
		return fmt.Errorf("query is empty")
	}

	idx, err := openIndex(root)
	if err != nil {
		return err
	}

	scorer, _, err := buildScorer(cfg, root, idx)
	if err != nil {
		return err
	}

	results := usecase.NewRetrieveUseCase(scorer, cfg.Retrieve.TopN, 1).Retrieve(tokens)

	out := queryOutput{
		Query:   queryText,
		Model:   scorer.Name(),
		Results: make([]queryOutputResult, len(results)),
	}
	if exp, ok := scorer.(*retriever.QueryExpander); ok {
		out.Expanded = exp.Expand(tokens)
	}
	for i, r := range results {
		out.Results[i] = queryOutputResult{Rank: i + 1, DocID: r.DocID, Score: r.Score}
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(out.Expanded) > 0 {
		fmt.Printf("Expanded query: %s\n\n", strings.Join(out.Expanded, " "))
	}
	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results (%s):\n\n", len(results), out.Model)
	for _, r := range out.Results {
		fmt.Printf("%4d. %-40s %.4f\n", r.Rank, r.DocID, r.Score)
	}
	return nil
}
