package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"git.home.luguber.info/inful/pkgdocs/internal/docbuilder"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
)

func outcomeColor(o docbuilder.Outcome) *color.Color {
	switch o {
	case docbuilder.OutcomeBuilt:
		return green
	case docbuilder.OutcomeSkipped:
		return yellow
	default:
		return red
	}
}

// printOutcome writes "name-version: outcome" with the outcome colored.
func printOutcome(w io.Writer, name, version string, o docbuilder.Outcome) error {
	_, err := fmt.Fprintf(w, "%s-%s: %s\n", name, version, outcomeColor(o).Sprint(o.String()))
	return err
}

func printSummary(w io.Writer, sum docbuilder.WorldSummary) error {
	_, err := fmt.Fprintf(w, "built %s, skipped %s, failed %s, errors %s\n",
		green.Sprint(sum.Built), yellow.Sprint(sum.Skipped), red.Sprint(sum.Failed), red.Sprint(sum.Errors))
	return err
}
