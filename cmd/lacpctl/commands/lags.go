package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/lacpd/internal/lacp"
)

func lagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lags",
		Short: "Inspect formed LAGs",
	}

	cmd.AddCommand(lagsListCmd())

	return cmd
}

func lagsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all active LAGs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var lags []lacp.LAGSnapshot
			if err := getJSON(cmd.Context(), "/v1/lags", &lags); err != nil {
				return err
			}

			out, err := formatLAGs(lags, outputFormat)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}

func formatLAGs(lags []lacp.LAGSnapshot, format string) (string, error) {
	switch format {
	case formatJSON:
		return marshalJSON(lags)
	case formatTable:
		return lagsTable(lags), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func lagsTable(lags []lacp.LAGSnapshot) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LAG-ID\tPORT-TYPE\tMEMBERS\tREADY\tLOOPBACK\tAGGREGATOR")

	for _, l := range lags {
		members := make([]string, len(l.Members))
		for i, m := range l.Members {
			members[i] = fmt.Sprintf("%d", m)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\t%d\n",
			l.ID, l.PortType, strings.Join(members, ","), l.Ready, l.LoopBack, l.Aggregator)
	}

	w.Flush() //nolint:errcheck // writing to a strings.Builder never fails
	return buf.String()
}
