package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Manage the cluster control plane",
}

var clusterInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the cluster with this host as manager",
	Long: `Initialize the Docker Swarm control plane with this host as the
manager and persist the join tokens. Safe to run repeatedly: an already
initialized cluster is left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		state, err := app.manager.BootstrapCluster(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println("✓ Cluster initialized")
		fmt.Printf("  Manager address: %s\n", state.ManagerAddr)
		fmt.Println("  Join tokens stored; run 'flotilla cluster info --show-tokens' to view them")
		return nil
	},
}

var clusterInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cluster bootstrap state",
	RunE: func(cmd *cobra.Command, args []string) error {
		showTokens, _ := cmd.Flags().GetBool("show-tokens")

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		state, err := app.manager.ClusterInfo()
		if err != nil {
			return err
		}

		fmt.Printf("Initialized:     %v\n", state.Initialized)
		fmt.Printf("Manager address: %s\n", state.ManagerAddr)
		if showTokens {
			fmt.Printf("Worker token:    %s\n", state.WorkerToken)
			fmt.Printf("Manager token:   %s\n", state.ManagerToken)
		} else {
			fmt.Printf("Worker token:    %s\n", maskToken(state.WorkerToken))
			fmt.Printf("Manager token:   %s\n", maskToken(state.ManagerToken))
		}
		return nil
	},
}

// maskToken keeps the token prefix for recognition and hides the secret
func maskToken(token string) string {
	if token == "" {
		return "(none)"
	}
	parts := strings.SplitN(token, "-", 3)
	if len(parts) < 3 {
		return "********"
	}
	return parts[0] + "-" + parts[1] + "-********"
}

func init() {
	clusterCmd.AddCommand(clusterInitCmd)
	clusterCmd.AddCommand(clusterInfoCmd)

	clusterInfoCmd.Flags().Bool("show-tokens", false, "Print the join tokens in clear text")
}
