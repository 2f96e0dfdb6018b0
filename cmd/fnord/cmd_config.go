package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fnord/internal/settings"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and mutate fnord's settings document",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the full settings document",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		doc, err := a.settings.Read()
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <dotted.key> <value>",
	Short: "Set a dotted settings key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		key, raw := args[0], args[1]
		var value any = raw
		if strings.HasSuffix(key, ".exclude") {
			value = strings.Split(raw, ",")
		}
		if err := a.settings.Set(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		fmt.Printf("%s = %s\n", key, raw)
		return nil
	},
}

var (
	approvalsKind    string
	approvalsProject string
)

var configApprovalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "List approved patterns for a kind (shell or edit)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if approvalsKind == "" {
			return fmt.Errorf("--kind is required")
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		list, err := a.settings.ApprovalsGet(approvalsProject, approvalsKind)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("(none)")
			return nil
		}
		for _, pattern := range list {
			fmt.Println(pattern)
		}
		return nil
	},
}

var (
	approveKind    string
	approveProject string
	approvePattern string
)

var configApproveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Persistently approve a shell or edit pattern",
	RunE: func(cmd *cobra.Command, args []string) error {
		if approveKind == "" || approvePattern == "" {
			return fmt.Errorf("--kind and --pattern are required")
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.settings.ApprovalsApprove(approveProject, approveKind, approvePattern); err != nil {
			return err
		}
		fmt.Printf("approved %q for %s\n", approvePattern, approveKind)
		return nil
	},
}

var (
	mcpName     string
	mcpProtocol string
	mcpEndpoint string
	mcpEnabled  bool
	mcpTimeout  string
	mcpRemove   bool
)

var configMCPCmd = &cobra.Command{
	Use:   "mcp",
	Short: "List, add, or remove a remote tool server's transport config",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if mcpName == "" {
			doc, err := a.settings.Read()
			if err != nil {
				return err
			}
			for name, cfg := range doc.MCPServers {
				fmt.Printf("%s  protocol=%s endpoint=%s enabled=%t\n", name, cfg.Protocol, cfg.Endpoint, cfg.Enabled)
			}
			return nil
		}
		if mcpRemove {
			if err := a.settings.MCPServerRemove(mcpName); err != nil {
				return err
			}
			fmt.Printf("removed mcp server %s\n", mcpName)
			return nil
		}
		if mcpProtocol != "" || mcpEndpoint != "" {
			cfg := settings.MCPServerConfig{
				Protocol: mcpProtocol,
				Endpoint: mcpEndpoint,
				Timeout:  mcpTimeout,
				Enabled:  mcpEnabled,
			}
			if err := a.settings.MCPServerAdd(mcpName, cfg); err != nil {
				return err
			}
			fmt.Printf("saved mcp server %s\n", mcpName)
			return nil
		}
		cfg, err := a.settings.MCPServerGet(mcpName)
		if err != nil {
			return err
		}
		fmt.Printf("%s  protocol=%s endpoint=%s enabled=%t\n", mcpName, cfg.Protocol, cfg.Endpoint, cfg.Enabled)
		return nil
	},
}

func init() {
	configApprovalsCmd.Flags().StringVar(&approvalsKind, "kind", "", "shell or edit")
	configApprovalsCmd.Flags().StringVar(&approvalsProject, "project", "", "project name (empty = global scope)")

	configApproveCmd.Flags().StringVar(&approveKind, "kind", "", "shell or edit")
	configApproveCmd.Flags().StringVar(&approveProject, "project", "", "project name (empty = global scope)")
	configApproveCmd.Flags().StringVar(&approvePattern, "pattern", "", "the command prefix or path scope to approve")

	configMCPCmd.Flags().StringVar(&mcpName, "name", "", "server id")
	configMCPCmd.Flags().StringVar(&mcpProtocol, "protocol", "", "http, stdio, or websocket")
	configMCPCmd.Flags().StringVar(&mcpEndpoint, "endpoint", "", "server endpoint or base URL")
	configMCPCmd.Flags().StringVar(&mcpTimeout, "timeout", "", "per-call timeout (e.g. 5s)")
	configMCPCmd.Flags().BoolVar(&mcpEnabled, "enabled", true, "whether the server auto-connects")
	configMCPCmd.Flags().BoolVar(&mcpRemove, "remove", false, "remove the named server")

	configCmd.AddCommand(configListCmd, configSetCmd, configApprovalsCmd, configApproveCmd, configMCPCmd)
}
