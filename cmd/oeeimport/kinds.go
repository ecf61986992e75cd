package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/oeedash/internal/core"
)

func newKindsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "kinds [kind...]",
		Short: "Print the accepted column headers and value formats of each record kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := selectKinds(args)
			if err != nil {
				return err
			}

			if asJSON {
				out := make(map[core.RecordKind][]core.FieldRule, len(defs))
				for _, def := range defs {
					out[def.Kind] = core.FieldRules(def)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			for _, def := range defs {
				fmt.Fprintln(cmd.OutOrStdout(), renderFieldRules(def))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the field rules as JSON")
	return cmd
}

// selectKinds resolves the named kinds, or all registered kinds when none are named.
func selectKinds(names []string) ([]core.KindDefinition, error) {
	if len(names) == 0 {
		return core.All(), nil
	}
	defs := make([]core.KindDefinition, 0, len(names))
	for _, name := range names {
		def, ok := core.Get(core.RecordKind(strings.ToLower(name)))
		if !ok {
			return nil, fmt.Errorf("%w: %q (use one of %s)", core.ErrUnsupportedKind, name, kindList())
		}
		defs = append(defs, def)
	}
	return defs, nil
}
