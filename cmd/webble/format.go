package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
)

var validFormats = []string{"table", "json"}

func validateFormat(format string) error {
	if !slices.Contains(validFormats, format) {
		return fmt.Errorf("invalid format '%s': must be one of %v", format, validFormats)
	}
	return nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeJSONLine(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// parseHexData accepts hex with spaces, colons, dashes or 0x prefixes.
func parseHexData(dataStr string) ([]byte, error) {
	cleaned := strings.ReplaceAll(dataStr, " ", "")
	cleaned = strings.ReplaceAll(cleaned, ":", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.ReplaceAll(cleaned, "0x", "")

	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}
	return data, nil
}

// formatManufacturerData renders company IDs in ascending order as
// "004c:0215,0059:01".
func formatManufacturerData(md map[uint16][]byte) string {
	ids := make([]int, 0, len(md))
	for id := range md {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%04x:%s", id, hex.EncodeToString(md[uint16(id)])))
	}
	return strings.Join(parts, ",")
}

// manufacturerDataJSON keys manufacturer data by the 4-digit company ID.
func manufacturerDataJSON(md map[uint16][]byte) map[string]string {
	out := make(map[string]string, len(md))
	for id, data := range md {
		out[fmt.Sprintf("%04x", id)] = hex.EncodeToString(data)
	}
	return out
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
