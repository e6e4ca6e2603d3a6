package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kalambet/verdant/internal/config"
)

// --- runs ---

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the execution history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent monitoring runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		client := newAPIClient(cfg)

		path := fmt.Sprintf("/runs?limit=%d", limit)
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var runs []struct {
			ID        string `json:"id"`
			Timestamp string `json:"timestamp"`
			SessionID string `json:"session_id"`
			Data      struct {
				PlantStatus string `json:"plant_status"`
				Comment     string `json:"comment"`
			} `json:"data"`
		}
		if err := decodeJSON(resp, &runs); err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		for _, r := range runs {
			status := r.Data.PlantStatus
			if status == "" {
				status = "-"
			}
			comment := r.Data.Comment
			if len(comment) > 60 {
				comment = comment[:60] + "..."
			}
			fmt.Printf("%s  %s  %-10s  %s\n",
				colorize(colorCyan, shortID(r.ID)),
				r.Timestamp,
				status,
				comment,
			)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		client := newAPIClient(cfg)

		resp, err := client.get(cmd.Context(), "/runs/"+args[0])
		if err != nil {
			return err
		}

		var run any
		if err := decodeJSON(resp, &run); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}

// --- session ---

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Show the active agent session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		client := newAPIClient(cfg)

		resp, err := client.get(cmd.Context(), "/session")
		if err != nil {
			return err
		}
		if resp.StatusCode == 404 {
			resp.Body.Close()
			fmt.Println("No active session.")
			return nil
		}

		var session any
		if err := decodeJSON(resp, &session); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(session)
	},
}

// --- context ---

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Show the last recorded context snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		client := newAPIClient(cfg)

		resp, err := client.get(cmd.Context(), "/context")
		if err != nil {
			return err
		}
		if resp.StatusCode == 404 {
			resp.Body.Close()
			fmt.Println("No context snapshot recorded.")
			return nil
		}

		var snap any
		if err := decodeJSON(resp, &snap); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
