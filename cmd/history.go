package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadscout/internal/store"
)

var (
	historyKeyword string
	historyStatus  string
	historyLimit   int
	historyLeads   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past searches and their saved leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if historyLeads {
			if historyKeyword == "" {
				return eris.New("--keyword is required with --leads")
			}
			leads, err := st.LeadsByKeyword(ctx, historyKeyword, historyLimit)
			if err != nil {
				return eris.Wrap(err, "list leads")
			}
			return enc.Encode(leads)
		}

		recs, err := st.ListSearches(ctx, historyFilter())
		if err != nil {
			return eris.Wrap(err, "list searches")
		}
		return enc.Encode(recs)
	},
}

func historyFilter() store.SearchFilter {
	return store.SearchFilter{
		Keyword: historyKeyword,
		Status:  store.SearchStatus(historyStatus),
		Limit:   historyLimit,
	}
}

func init() {
	historyCmd.Flags().StringVar(&historyKeyword, "keyword", "", "filter by keyword")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "filter by status (running, complete, failed)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "max rows to return")
	historyCmd.Flags().BoolVar(&historyLeads, "leads", false, "show saved leads instead of searches")
	rootCmd.AddCommand(historyCmd)
}
