package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/sitepanel/internal/application"
	"github.com/ericfisherdev/sitepanel/internal/domain/model"
)

type matchOptions struct {
	name    string
	aliases []string
	config  string
}

// MatchResult is the JSON output of the match command.
type MatchResult struct {
	Target         string                      `json:"target"`
	Thresholds     application.MatchThresholds `json:"thresholds"`
	Ranked         []MatchCandidate            `json:"ranked"`
	Action         model.FolderAction          `json:"action"`
	Primary        string                      `json:"primary,omitempty"`
	Reason         string                      `json:"reason"`
	LinkBothOption bool                        `json:"link_both_eligible"`
}

// MatchCandidate is one ranked folder.
type MatchCandidate struct {
	Name       string           `json:"name"`
	Score      float64          `json:"score"`
	MatchType  model.MatchType  `json:"match_type"`
	Confidence model.Confidence `json:"confidence"`
}

// NewMatchCommand creates the match command.
func NewMatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &matchOptions{}

	cmd := &cobra.Command{
		Use:   "match --name NAME [--alias ALIAS]... FOLDER...",
		Short: "Score folder names against a customer name",
		Long: `Score folder names against a customer name offline, the way folder
recommendations do, and print the ranking and the recommended action.
Use --config to try a thresholds file before deploying it.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, rootOpts, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "customer name (required)")
	cmd.Flags().StringArrayVar(&opts.aliases, "alias", nil, "alternate name such as a site nickname (repeatable)")
	cmd.Flags().StringVar(&opts.config, "config", "", "YAML thresholds file")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runMatch(cmd *cobra.Command, rootOpts *RootOptions, opts *matchOptions, folders []string) error {
	thresholds := application.DefaultMatchThresholds()
	if opts.config != "" {
		data, err := os.ReadFile(opts.config)
		if err != nil {
			return fmt.Errorf("read thresholds: %w", err)
		}
		if thresholds, err = application.ParseMatchThresholds(data); err != nil {
			return err
		}
	}

	raw := make([]model.FolderCandidate, 0, len(folders))
	for i, name := range folders {
		raw = append(raw, model.FolderCandidate{ID: strconv.Itoa(i + 1), Name: name})
	}

	matcher := application.NewFolderMatcher(thresholds)
	ranked, rec := matcher.Match(application.MatchTarget{Name: opts.name, Aliases: opts.aliases}, raw)

	result := MatchResult{
		Target:         opts.name,
		Thresholds:     thresholds,
		Ranked:         make([]MatchCandidate, 0, len(ranked)),
		Action:         rec.Action,
		Reason:         rec.Reason,
		LinkBothOption: rec.LinkBothEligible,
	}
	for _, c := range ranked {
		result.Ranked = append(result.Ranked, MatchCandidate{
			Name:       c.Name,
			Score:      c.MatchScore,
			MatchType:  c.MatchType,
			Confidence: c.Confidence,
		})
	}
	if rec.Primary != nil {
		result.Primary = rec.Primary.Name
	}

	if rootOpts.Format == "json" {
		return printJSON(cmd.OutOrStdout(), result)
	}
	return printMatch(cmd.OutOrStdout(), result)
}

func printMatch(w io.Writer, r MatchResult) error {
	if len(r.Ranked) == 0 {
		fmt.Fprintf(w, "No folder scored above %.2f for %q.\n", r.Thresholds.Minimum, r.Target)
	} else {
		t := newTable(w)
		t.row("SCORE", "TYPE", "CONFIDENCE", "FOLDER")
		for _, c := range r.Ranked {
			t.row(fmt.Sprintf("%.3f", c.Score), c.MatchType, c.Confidence, c.Name)
		}
		if err := t.flush(); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\nRecommendation: %s", r.Action)
	if r.Primary != "" {
		fmt.Fprintf(w, " (%s)", r.Primary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, r.Reason)
	if r.LinkBothOption {
		fmt.Fprintln(w, "Linking both an existing and a new folder is available.")
	}
	return nil
}
