package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flotilla-sh/flotilla/pkg/types"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage worker nodes",
}

var nodeAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Enroll a worker node",
	Long: `Enroll a worker node in the fleet. The SSH private key is encrypted
before it is stored. With --provision the node is immediately set up
over SSH and joined to the cluster; otherwise run 'flotilla node
provision' later.

A node can also be described in a YAML file passed with -f.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := nodeSpecFromFlags(cmd, args)
		if err != nil {
			return err
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		id, err := app.manager.AddWorkerNode(cmd.Context(), spec)
		if err != nil {
			if id != "" {
				fmt.Fprintf(os.Stderr, "Node %s enrolled but provisioning failed; retry with 'flotilla node provision %s'\n", id, id)
			}
			return err
		}

		fmt.Printf("✓ Node %s enrolled (id %s)\n", spec.Name, id)
		if spec.AutoProvision {
			fmt.Println("✓ Node provisioned and joined the cluster")
		}
		return nil
	},
}

func nodeSpecFromFlags(cmd *cobra.Command, args []string) (types.NodeSpec, error) {
	var spec types.NodeSpec

	if file, _ := cmd.Flags().GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return spec, fmt.Errorf("failed to read node spec: %w", err)
		}
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return spec, fmt.Errorf("failed to parse node spec: %w", err)
		}
	}

	if len(args) > 0 {
		spec.Name = args[0]
	}
	if ip, _ := cmd.Flags().GetString("ip"); ip != "" {
		spec.IPAddress = ip
	}
	if port, _ := cmd.Flags().GetInt("ssh-port"); port != 0 {
		spec.SSHPort = port
	}
	if user, _ := cmd.Flags().GetString("ssh-user"); user != "" {
		spec.SSHUser = user
	}
	if keyFile, _ := cmd.Flags().GetString("ssh-key"); keyFile != "" {
		key, err := os.ReadFile(keyFile)
		if err != nil {
			return spec, fmt.Errorf("failed to read SSH key: %w", err)
		}
		spec.SSHPrivateKey = key
	}
	if provision, _ := cmd.Flags().GetBool("provision"); provision {
		spec.AutoProvision = true
	}

	return spec, nil
}

var nodeProvisionCmd = &cobra.Command{
	Use:   "provision NODE_ID",
	Short: "Provision an enrolled node over SSH and join it to the cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		if err := app.manager.ProvisionNode(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("✓ Node provisioned and joined the cluster")
		return nil
	},
}

var nodeRemoveCmd = &cobra.Command{
	Use:     "rm NODE_ID",
	Aliases: []string{"remove"},
	Short:   "Drain a node and remove it from the fleet",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		if err := app.manager.RemoveNode(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("✓ Node removed")
		return nil
	},
}

var nodeListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List worker nodes with status and resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		reports, err := app.manager.NodeStatuses(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tADDRESS\tSTATUS\tCPU\tMEMORY(MB)\tCONTAINERS\tHEARTBEAT\tWARNINGS")
		for _, r := range reports {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f/%.1f\t%.0f/%.0f\t%d\t%s\t%s\n",
				shortID(r.ID), r.Name, r.IPAddress, r.Status,
				r.CPU.Used, r.CPU.Total,
				r.MemoryMB.Used, r.MemoryMB.Total,
				r.Containers,
				formatAge(r.LastHeartbeatAt),
				strings.Join(r.Warnings, "; "))
		}
		return w.Flush()
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	nodeCmd.AddCommand(nodeAddCmd)
	nodeCmd.AddCommand(nodeProvisionCmd)
	nodeCmd.AddCommand(nodeRemoveCmd)
	nodeCmd.AddCommand(nodeListCmd)

	nodeAddCmd.Flags().StringP("file", "f", "", "YAML file describing the node")
	nodeAddCmd.Flags().String("ip", "", "Node IP address")
	nodeAddCmd.Flags().Int("ssh-port", 0, "SSH port (default 22)")
	nodeAddCmd.Flags().String("ssh-user", "", "SSH user (default root)")
	nodeAddCmd.Flags().String("ssh-key", "", "Path to the SSH private key")
	nodeAddCmd.Flags().Bool("provision", false, "Provision the node immediately")
}
