package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/esoteric-daily/internal/app"
	"github.com/jsamuelsen/esoteric-daily/internal/domain"
)

const (
	mistsExplanation  = "The mists obscured the explanation. Please try again."
	noIllustration    = "No illustration could be conjured for this day."
	illustrationFaded = "The vision faded before it could be captured. Please try again."
)

func workflowAnnotations() map[string]string {
	return map[string]string{needsWorkflow: "true"}
}

func (c *cli) todayCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "today",
		Short:       "Show today's wisdom, creating it on the first call of the day",
		Args:        cobra.NoArgs,
		Annotations: workflowAnnotations(),
		RunE:        c.withSession(c.runToday),
	}
}

func (c *cli) runToday(cmd *cobra.Command, _ []string) error {
	snap, err := c.session.workflow.Today(cmd.Context())
	if err != nil {
		return fmt.Errorf("the oracle is silent today: %w", err)
	}

	markdown := wisdomMarkdown(snap.Record)
	if snap.Record.HasExplanation() {
		markdown += "\n## Explanation\n\n" + strings.TrimSpace(snap.Record.Explanation) + "\n"
	}

	if err := c.renderer.render(c.stdout, markdown); err != nil {
		return err
	}

	if snap.Illustration == app.FieldLoading {
		fmt.Fprintln(c.stderr, "Conjuring today's illustration...")
	}

	return nil
}

func (c *cli) explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "explain [date]",
		Short:       "Show the detailed explanation of a day's wisdom",
		Long:        "explain fetches the detailed explanation once and stores it. The date defaults to today.",
		Args:        cobra.MaximumNArgs(1),
		Annotations: workflowAnnotations(),
		RunE: c.withSession(func(cmd *cobra.Command, args []string) error {
			snap, err := c.session.workflow.Explain(cmd.Context(), c.dateArg(args))
			if err != nil {
				if domain.IsValidation(err) || domain.IsNotFound(err) {
					return err
				}

				fmt.Fprintln(c.stderr, mistsExplanation)

				return err
			}

			return c.renderer.render(c.stdout, explanationMarkdown(snap.Record))
		}),
	}
}

func (c *cli) illustrateCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:         "illustrate [date]",
		Short:       "Fetch a day's illustration",
		Long:        "illustrate fetches the illustration once and stores it. The date defaults to today.",
		Args:        cobra.MaximumNArgs(1),
		Annotations: workflowAnnotations(),
		RunE: c.withSession(func(cmd *cobra.Command, args []string) error {
			snap, err := c.session.workflow.Illustrate(cmd.Context(), c.dateArg(args))
			if err != nil {
				return err
			}

			switch {
			case snap.Record != nil && snap.Record.HasImage():
				return c.printImage(snap.Record.ImageURL, out)

			case snap.Illustration == app.FieldUnavailable:
				fmt.Fprintln(c.stdout, noIllustration)
				return nil

			case snap.Illustration == app.FieldFailed:
				fmt.Fprintln(c.stderr, illustrationFaded)

				if snap.IllustrationError == "" {
					return errors.New("illustration failed")
				}

				return errors.New(snap.IllustrationError)

			default:
				fmt.Fprintf(c.stdout, "Illustration is %s.\n", snap.Illustration)
				return nil
			}
		}),
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "save the image to this file")

	return cmd
}

// printImage saves an inline image when out is set, and otherwise prints
// where the image can be found.
func (c *cli) printImage(imageURL, out string) error {
	inline := strings.HasPrefix(imageURL, "data:")

	if out != "" {
		if !inline {
			return fmt.Errorf("illustration is hosted at %s and cannot be saved with --out", imageURL)
		}

		path, err := saveImage(out, imageURL)
		if err != nil {
			return err
		}

		fmt.Fprintf(c.stdout, "Illustration saved to %s\n", path)

		return nil
	}

	if inline {
		data, ext, err := decodeDataURI(imageURL)
		if err != nil {
			return err
		}

		fmt.Fprintf(c.stdout, "Illustration ready (%s, %d bytes). Use --out to save it.\n",
			strings.TrimPrefix(ext, "."), len(data))

		return nil
	}

	fmt.Fprintln(c.stdout, imageURL)

	return nil
}

func (c *cli) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:         "history",
		Short:       "List stored days, newest first",
		Args:        cobra.NoArgs,
		Annotations: workflowAnnotations(),
		RunE: c.withSession(func(cmd *cobra.Command, _ []string) error {
			if limit == 0 {
				limit = c.session.historyLimit
			}

			records, err := c.session.workflow.History(cmd.Context(), limit)
			if err != nil {
				return err
			}

			return c.renderer.render(c.stdout, historyMarkdown(records))
		}),
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of days to list (default from tasks.history_limit)")

	return cmd
}

func (c *cli) pruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:         "prune",
		Short:       "Evict stored days older than the retention window",
		Args:        cobra.NoArgs,
		Annotations: workflowAnnotations(),
		RunE: c.withSession(func(cmd *cobra.Command, _ []string) error {
			if keep == 0 {
				keep = c.session.retentionDays
			}

			n, err := c.session.workflow.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.stdout, "Pruned %d day(s), keeping the last %d.\n", n, keep)

			return nil
		}),
	}

	cmd.Flags().IntVarP(&keep, "keep", "k", 0, "days to keep, today included (default from cache.retention_days)")

	return cmd
}

func (c *cli) dateArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}

	return c.session.workflow.CurrentDate()
}
