package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/persistorai/podrestore/client"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration and connectivity",
		Long:  "Run diagnostic checks against config, server, schema and auth",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context())
		},
	}
}

type checkResult struct {
	Name   string
	Passed bool
	Detail string
	Hint   string
}

func runDoctor(ctx context.Context) error {
	fmt.Println("\npodrestore doctor")
	fmt.Println("=================")

	var results []checkResult

	// 1. Config file.
	cfgPath, cfg, cfgErr := loadConfigFile()
	if cfgErr != nil {
		results = append(results, checkResult{
			Name: "Config file", Passed: false,
			Detail: cfgPath,
			Hint:   "Run: podrestore init",
		})
	} else {
		results = append(results, checkResult{
			Name: "Config file", Passed: true,
			Detail: fmt.Sprintf("found (%s)", cfgPath),
		})
	}

	url, apiKey := resolveSettings(flagURL, flagKey, cfg)

	// 2. API key.
	if apiKey == "" {
		results = append(results, checkResult{
			Name: "API key", Passed: false,
			Hint: "Set --api-key, PODRESTORE_API_KEY, or run podrestore init",
		})
	} else {
		results = append(results, checkResult{
			Name: "API key", Passed: true, Detail: "configured",
		})
	}

	c := client.New(url, client.WithAPIKey(apiKey), client.WithTimeout(5*time.Second))

	// 3. Server reachable.
	health, err := c.Health(ctx)
	if err != nil {
		results = append(results, checkResult{
			Name: "Server reachable", Passed: false,
			Detail: url,
			Hint:   fmt.Sprintf("Is the podrestore server running?\n   Error: %v", err),
		})
	} else {
		results = append(results, checkResult{
			Name: "Server reachable", Passed: true, Detail: fmt.Sprintf("v%s (database %s)", health.Version, health.Database),
		})

		// 4. Schema and database readiness.
		if ready, err := c.Ready(ctx); err != nil {
			results = append(results, checkResult{
				Name: "Server ready", Passed: false,
				Hint: fmt.Sprintf("Check the server logs for migration or database errors. Error: %v", err),
			})
		} else {
			results = append(results, checkResult{
				Name: "Server ready", Passed: true, Detail: fmt.Sprintf("schema v%d", ready.SchemaVersion),
			})
		}
	}

	// 5. Authentication.
	if err == nil && apiKey != "" {
		if _, _, err := c.Audit.Query(ctx, &client.AuditQueryOptions{Limit: 1}); err != nil {
			results = append(results, checkResult{
				Name: "Authentication", Passed: false,
				Hint: fmt.Sprintf("Check your API key. Error: %v", err),
			})
		} else {
			results = append(results, checkResult{
				Name: "Authentication", Passed: true, Detail: "valid",
			})
		}
	}

	fmt.Println()
	allPassed := true
	for _, r := range results {
		mark := "✅"
		if !r.Passed {
			mark = "❌"
			allPassed = false
		}
		if r.Detail != "" {
			fmt.Printf("%s %s: %s\n", mark, r.Name, r.Detail)
		} else {
			fmt.Printf("%s %s\n", mark, r.Name)
		}
		if !r.Passed && r.Hint != "" {
			fmt.Printf("   Hint: %s\n", r.Hint)
		}
	}

	fmt.Println()
	if !allPassed {
		fmt.Println("❌ Some checks failed.")
		return fmt.Errorf("doctor found issues")
	}

	fmt.Println("✅ All checks passed!")

	return nil
}
