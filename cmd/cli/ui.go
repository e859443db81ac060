package main

import (
	"encoding/json"
	"os"

	"github.com/fatih/color"
)

// Color definitions
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
	boldColor    = color.New(color.Bold)
)

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// countColor highlights non-zero counts that need attention.
func countColor(n int64, c *color.Color) *color.Color {
	if n == 0 {
		return dimColor
	}
	return c
}
