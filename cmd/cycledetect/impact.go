package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newImpactCmd() *cobra.Command {
	var f graphFlags

	cmd := &cobra.Command{
		Use:   "impact <file>...",
		Short: "Report the blast radius of changing one or more files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := buildStore(cmd, f)
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := store.AssessImpact(cmd.Context(), args)
			if err != nil {
				return err
			}

			if f.json {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "risk score: %.2f\n", result.RiskScore)
			fmt.Fprintln(w, "directly affected:")
			for _, p := range result.DirectlyAffected {
				fmt.Fprintf(w, "  %s\n", p)
			}
			fmt.Fprintln(w, "transitively affected:")
			for _, p := range result.TransitivelyAffected {
				fmt.Fprintf(w, "  %s\n", p)
			}
			return nil
		},
	}

	bindGraphFlags(cmd, &f)
	return cmd
}
