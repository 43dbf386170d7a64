package resolve

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/operator-framework/backtrack/cmd/options"
	"github.com/operator-framework/backtrack/pkg/resolver"
)

func NewResolveCommand(o *options.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <catalog.yaml>",
		Short: "Resolves the requests of a package catalog",
		Long: `Resolves the requests of a package catalog. For instance:
packages:
- name: app
  versions:
  - version: "2.0"
    requires: [lib, libc]
    recommends: [docs]
  - version: "1.0"
- name: lib
  versions:
  - version: "1.1"
    conflicts: [app@1.0]
  - version: "1.0"
- name: docs
  versions:
  - version: "1.0"
requests: [app]
external: [libc]
search:
  maxDepth: 64
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolve(cmd, o, args[0])
		},
	}
}

func resolve(cmd *cobra.Command, o *options.Options, path string) error {
	catalog, err := resolver.LoadCatalogFile(path)
	if err != nil {
		return err
	}

	opts := []resolver.Option{resolver.WithLabel(o.Label)}
	flags := cmd.Flags()
	if flags.Changed("max-depth") {
		opts = append(opts, resolver.WithMaxDepth(o.MaxDepth))
	}
	if flags.Changed("fail-at-max-depth") {
		opts = append(opts, resolver.WithFailAtMaxDepth(o.FailAtMaxDepth))
	}
	if flags.Changed("max-alternatives") {
		opts = append(opts, resolver.WithMaxAlternatives(o.MaxAlternatives))
	}
	depth := o.MaxDepth
	if !flags.Changed("max-depth") {
		depth = resolver.DefaultMaxDepth
		if catalog.Search != nil && catalog.Search.MaxDepth != nil {
			depth = *catalog.Search.MaxDepth
		}
	}
	opts = append(opts, resolver.WithSearchOptions(o.SearchOptions(cmd, depth)...))

	r, err := resolver.NewResolver(catalog, opts...)
	if err != nil {
		return err
	}
	solution, err := r.Resolve(cmd.Context())
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "no solution found: %s\n", err)
		return nil
	}
	printSolution(cmd.OutOrStdout(), solution)
	return nil
}

func printSolution(out io.Writer, s *resolver.Solution) {
	fmt.Fprintln(out, "solution found:")
	for _, i := range s.Selected {
		fmt.Fprintf(out, "install %s\n", i)
	}
	for _, r := range s.External {
		fmt.Fprintf(out, "external %s\n", r)
	}
	for _, r := range s.Skipped {
		fmt.Fprintf(out, "skipped %s\n", r)
	}
	for _, r := range s.Unresolved {
		fmt.Fprintf(out, "unresolved %s\n", r)
	}
}
