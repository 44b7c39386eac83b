package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/gpures/internal/catalog"
)

// ResourceView is the JSON form of a catalog entry.
type ResourceView struct {
	ID string `json:"id"`
	catalog.Resource
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the reservable resources",
		Long: `Load and validate the resource catalog and list its resources.

The catalog is a .cue, .yaml or .yml file set by --catalog or the config file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(rootOpts, cmd)
		},
	}
}

func runCatalog(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if cfg.Catalog == "" {
		return NewExitError(ExitCommandError, "no catalog configured: set --catalog or catalog in the config file")
	}

	cat, err := catalog.Load(cfg.Catalog)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid catalog", err)
	}

	f := newFormatter(opts, cmd)
	if opts.Format == "json" {
		views := make([]ResourceView, 0, cat.Len())
		for _, r := range cat.Resources() {
			views = append(views, ResourceView{ID: r.ID, Resource: r})
		}
		return f.Success(views)
	}
	printResources(cmd.OutOrStdout(), cat.Resources())
	return nil
}
