package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

var (
	historyLimit int
	historyTask  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent harvest runs",
	Long: `Lists finished harvest runs, most recent first.
Use --task to list the runs of one task and "history show <id>" for the
details of a single run.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationEngine: "true"},
	RunE:        runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:         "show <process-id>",
	Short:       "Show one harvest run",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationEngine: "true"},
	RunE:        runHistoryShow,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs")
	historyCmd.Flags().StringVarP(&historyTask, "task", "t", "", "only runs of the named task")
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if engine == nil {
		return errNotConfigured
	}

	var (
		records []domain.ProcessRecord
		err     error
	)
	if historyTask != "" {
		records, err = engine.TaskHistory(cmd.Context(), historyTask, historyLimit)
	} else {
		records, err = engine.History(cmd.Context(), historyLimit)
	}
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(records) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	for i := range records {
		r := &records[i]
		cmd.Printf("%s  %-10s %-8s %6d records  %3d/%-3d errors  %s  %s\n",
			r.StartedAt.Local().Format(time.DateTime),
			r.TaskName,
			outcome(r),
			r.Processed,
			r.InputErrors, r.OutputErrors,
			r.Duration().Round(time.Millisecond),
			r.ProcessID)
		if r.LastError != "" {
			cmd.Printf("    last error: %s\n", r.LastError)
		}
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	if engine == nil {
		return errNotConfigured
	}

	r, err := engine.Run(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	cmd.Printf("Process:   %s\n", r.ProcessID)
	cmd.Printf("Task:      %s\n", r.TaskName)
	cmd.Printf("Title:     %s\n", r.Title)
	cmd.Printf("Outcome:   %s\n", outcome(r))
	cmd.Printf("Started:   %s\n", r.StartedAt.Local().Format(time.DateTime))
	if !r.EndedAt.IsZero() {
		cmd.Printf("Ended:     %s (%s)\n", r.EndedAt.Local().Format(time.DateTime), r.Duration().Round(time.Millisecond))
	}
	cmd.Printf("Records:   %d\n", r.Processed)
	cmd.Printf("Errors:    %d input, %d output\n", r.InputErrors, r.OutputErrors)
	if r.LastError != "" {
		cmd.Printf("Last error: %s\n", r.LastError)
	}
	return nil
}

func outcome(r *domain.ProcessRecord) string {
	switch {
	case r.Aborted:
		return "aborted"
	case r.InputErrors > 0:
		return "failed"
	case r.OutputErrors > 0:
		return "partial"
	default:
		return "ok"
	}
}
