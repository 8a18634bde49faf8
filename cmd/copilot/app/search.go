package app

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/kart-io/pm-copilot/internal/console/view"
	v1 "github.com/kart-io/pm-copilot/pkg/api/copilot/v1"
	"github.com/kart-io/pm-copilot/pkg/validator"
)

func newSearchCommand(c *cli) *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search the knowledge base",
		Example: `  copilot search roadmap
  copilot search "pricing experiments" -k 5 -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("k") {
				k = c.opts.Console.SearchK
			}

			req := &v1.SearchRequest{
				Query: strings.Join(args, " "),
				K:     v1.Int(k),
			}
			if errs := validator.Global().ValidateWithLang(req, c.opts.Console.Lang); errs != nil {
				return errs
			}

			resp, err := c.client().Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			return c.print(view.NewSearchView(resp))
		},
	}

	cmd.Flags().IntVarP(&k, "k", "k", 0, "Number of documents to return (default console.search-k)")
	return cmd
}
