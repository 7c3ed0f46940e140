package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/lacpd/internal/lacp"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

var errUnsupportedFormat = errors.New("unsupported output format")

func portsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ports",
		Short: "Inspect LACP port state",
	}

	cmd.AddCommand(portsListCmd())
	cmd.AddCommand(portsShowCmd())

	return cmd
}

func portsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all managed ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var ports []lacp.PortSnapshot
			if err := getJSON(cmd.Context(), "/v1/ports", &ports); err != nil {
				return err
			}

			out, err := formatPorts(ports, outputFormat)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}

func portsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <handle>",
		Short: "Show details of a single port",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.ParseUint(args[0], 10, 64); err != nil {
				return fmt.Errorf("invalid port handle %q: %w", args[0], err)
			}

			var port lacp.PortSnapshot
			if err := getJSON(cmd.Context(), "/v1/ports/"+args[0], &port); err != nil {
				return err
			}

			out, err := formatPort(port, outputFormat)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
}

func formatPorts(ports []lacp.PortSnapshot, format string) (string, error) {
	switch format {
	case formatJSON:
		return marshalJSON(ports)
	case formatTable:
		return portsTable(ports), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatPort(port lacp.PortSnapshot, format string) (string, error) {
	switch format {
	case formatJSON:
		return marshalJSON(port)
	case formatTable:
		return portsTable([]lacp.PortSnapshot{port}), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func portsTable(ports []lacp.PortSnapshot) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HANDLE\tTYPE\tMODE\tRX-STATE\tMUX-STATE\tSELECTED\tIN-LAG\tLAG-ID")

	for _, p := range ports {
		lagID := "-"
		if p.InLAG {
			lagID = p.LAGID.String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
			p.Handle, p.Type, p.Mode, p.RxState, p.MuxState, p.Selected, p.InLAG, lagID)
	}

	w.Flush() //nolint:errcheck // writing to a strings.Builder never fails
	return buf.String()
}

func marshalJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal JSON: %w", err)
	}
	return string(data) + "\n", nil
}
