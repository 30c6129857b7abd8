package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-version"
	"github.com/nulzo/vision-grader/internal/cli"
	"github.com/spf13/cobra"
)

const releasesURL = "https://api.github.com/repos/nulzo/vision-grader/releases/latest"

type githubRelease struct {
	TagName string `json:"tag_name"`
}

func newVersionCmd(current string) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version, optionally checking for a newer release",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.Banner("vision-grader "+current))

			if !check {
				return nil
			}
			latest, newer, err := checkForUpdates(cmd.Context(), http.DefaultClient, releasesURL, current)
			if err != nil {
				return fmt.Errorf("update check: %w", err)
			}
			if newer {
				fmt.Fprintf(out, "%s a newer release is available: %s\n", cli.Style("!", cli.Yellow), latest)
				return nil
			}
			fmt.Fprintf(out, "%s up to date\n", cli.CheckMark())
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "check GitHub for a newer release")
	return cmd
}

// checkForUpdates compares current against the latest release tag.
func checkForUpdates(ctx context.Context, client *http.Client, url, current string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", false, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", false, err
	}

	cur, err := version.NewVersion(current)
	if err != nil {
		return "", false, err
	}
	latest, err := version.NewVersion(release.TagName)
	if err != nil {
		return "", false, err
	}

	return release.TagName, cur.LessThan(latest), nil
}
