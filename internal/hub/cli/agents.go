package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fialabdata/agenthub/internal/hub/dispatcher"
)

func newAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the agents and their availability",
		Long: `List every registered agent with the credentials it requires. An agent is
available when all of its credentials are set in the environment or the env file.

Examples:
  agenthub agents
  agenthub agents -j`,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := setup(configFile)
			if err != nil {
				return err
			}
			infos := h.dispatcher.ListAgents()
			if jsonOutput {
				printJSON(map[string]any{"agents": infos, "health": h.dispatcher.Health()})
				return nil
			}
			printAgents(cmd.OutOrStdout(), infos)
			return nil
		},
	}
}

func printAgents(out io.Writer, infos []dispatcher.AgentInfo) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  TYPE\tNAME\tCREDENTIALS\tSTATUS")
	fmt.Fprintln(w, "  ----\t----\t-----------\t------")
	for _, info := range infos {
		status := okLabel.Sprint("available")
		if !info.Available {
			status = errorLabel.Sprint("missing " + strings.Join(info.Missing, ", "))
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", info.Type, info.Name, strings.Join(info.RequiredCredentials, ", "), status)
	}
	w.Flush()
}
