package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// adaptersCmd represents the adapters command
var adaptersCmd = &cobra.Command{
	Use:   "adapters",
	Short: "List Bluetooth adapters",
	Long: `Lists the Bluetooth adapters SimpleBLE reports, with their identifier and
address. The active adapter is marked with '*'; pick another one with the
global --adapter flag.`,
	Args: cobra.NoArgs,
	RunE: runAdapters,
}

var adaptersFormat string

func init() {
	adaptersCmd.Flags().StringVarP(&adaptersFormat, "format", "f", "table", "Output format (table, json)")
}

type adapterJSON struct {
	Index      int    `json:"index"`
	Identifier string `json:"identifier"`
	Address    string `json:"address"`
	Active     bool   `json:"active"`
}

func runAdapters(cmd *cobra.Command, _ []string) error {
	if err := validateFormat(adaptersFormat); err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	active := s.bt.Adapter().Index
	adapters := s.bt.Adapters()
	out := cmd.OutOrStdout()

	if adaptersFormat == "json" {
		list := make([]adapterJSON, 0, len(adapters))
		for _, a := range adapters {
			list = append(list, adapterJSON{Index: a.Index, Identifier: a.Identifier, Address: a.Address, Active: a.Index == active})
		}
		return writeJSON(out, list)
	}

	w := newTable(out)
	fmt.Fprintln(w, "\tINDEX\tIDENTIFIER\tADDRESS")
	for _, a := range adapters {
		marker := ""
		if a.Index == active {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", marker, a.Index, a.Identifier, a.Address)
	}
	return w.Flush()
}
