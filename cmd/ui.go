package cmd

import (
	"fmt"

	"github.com/fatih/color"
)

// Output colors for the non-interactive commands.
var (
	Brand  = color.New(color.FgHiCyan, color.Bold)
	Subtle = color.New(color.FgHiBlack)
	Good   = color.New(color.FgGreen)
	Bad    = color.New(color.FgRed)
	Warn   = color.New(color.FgYellow)
)

func statusIcon(ok bool) string {
	if ok {
		return Good.Sprint("✓")
	}
	return Bad.Sprint("✗")
}

func banner(subtitle string) {
	fmt.Printf("%s: %s\n\n", Brand.Sprint("nodeflow"), subtitle)
}
