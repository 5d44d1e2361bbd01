package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/persistorai/podrestore/client"
	"github.com/persistorai/podrestore/internal/models"
)

// importFlags are shared by import and restore.
type importFlags struct {
	noProfile  bool
	noSettings bool
	dryRun     bool
}

func (f *importFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noProfile, "no-profile", false, "Leave the account profile untouched")
	cmd.Flags().BoolVar(&f.noSettings, "no-settings", false, "Leave account settings and contact groups untouched")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Validate and count without contacting pods or writing")
}

func (f *importFlags) options() client.ImportOptions {
	return client.ImportOptions{
		ImportProfile:  !f.noProfile,
		ImportSettings: !f.noSettings,
		DryRun:         f.dryRun,
	}
}

// readArchive loads an archive file ("-" reads stdin) and checks its
// structure locally before anything is sent.
func readArchive(path string) (json.RawMessage, *models.Archive, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading archive: %w", err)
	}

	archive, err := models.DecodeArchive(raw)
	if err != nil {
		return nil, nil, err
	}

	return json.RawMessage(raw), archive, nil
}

func newImportCmd() *cobra.Command {
	var (
		username string
		password string
		flags    importFlags
	)

	cmd := &cobra.Command{
		Use:   "import <archive>",
		Short: "Create or find an account and import an archive into it",
		Long: `Import an exported account archive. The account named by --username
(default: the archive's username) is created with the archive's email when it
does not exist. An existing account is only used when --password matches it.

The password may also be given in PODRESTORE_PASSWORD.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, archive, err := readArchive(args[0])
			if err != nil {
				return err
			}

			if username == "" && archive.User.Username != nil {
				username = *archive.User.Username
			}
			if username == "" {
				return fmt.Errorf("--username is required: the archive has no username")
			}

			if password == "" {
				password = os.Getenv("PODRESTORE_PASSWORD")
			}
			if password == "" {
				return fmt.Errorf("--password or PODRESTORE_PASSWORD is required")
			}

			result, err := apiClient.Imports.Import(cmd.Context(), client.ImportRequest{
				Username: username,
				Password: password,
				Archive:  raw,
			}, flags.options())
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			printResult(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Local account name")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	flags.register(cmd)

	return cmd
}

func newRestoreCmd() *cobra.Command {
	var (
		username string
		flags    importFlags
	)

	cmd := &cobra.Command{
		Use:   "restore <archive>",
		Short: "Import an archive into an existing account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _, err := readArchive(args[0])
			if err != nil {
				return err
			}

			result, err := apiClient.Imports.Restore(cmd.Context(), username, raw, flags.options())
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			printResult(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Existing local account name")
	_ = cmd.MarkFlagRequired("username")
	flags.register(cmd)

	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <archive>",
		Short: "Check an archive and report what an import would skip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _, err := readArchive(args[0])
			if err != nil {
				return err
			}

			report, err := apiClient.Imports.Validate(cmd.Context(), raw)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			switch flagFmt {
			case "table":
				formatTable([]string{"AUTHOR", "GROUPS", "CONTACTS", "TAGS", "SUBSCRIPTIONS", "PROBLEMS"}, [][]string{{
					report.Author,
					strconv.Itoa(report.Stats.ContactGroups),
					strconv.Itoa(report.Stats.Contacts),
					strconv.Itoa(report.Stats.FollowedTags),
					strconv.Itoa(report.Stats.PostSubscriptions),
					strconv.Itoa(len(report.Problems)),
				}})
			default:
				output(report, strconv.FormatBool(report.Valid))
			}

			if !report.Valid {
				return fmt.Errorf("archive is not valid")
			}
			return nil
		},
	}
}

func printResult(result *client.ImportResult) {
	switch flagFmt {
	case "table":
		formatTable([]string{"ACCOUNT", "CREATED", "GROUPS", "CONTACTS", "TAGS", "SUBSCRIPTIONS", "SKIPPED"}, [][]string{{
			result.Username,
			strconv.FormatBool(result.AccountCreated),
			strconv.Itoa(result.ContactGroupsCreated),
			strconv.Itoa(result.ContactsCreated),
			strconv.Itoa(result.TagsFollowed),
			strconv.Itoa(result.SubscriptionsCreated),
			strconv.Itoa(result.Skipped),
		}})
		for _, w := range result.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
	default:
		output(result, result.RunID)
	}
}
