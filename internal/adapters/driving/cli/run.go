package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/harvester/internal/core/domain"
	"github.com/custodia-labs/harvester/internal/core/ports/driven"
	"github.com/custodia-labs/harvester/internal/core/ports/driving"
	"github.com/custodia-labs/harvester/internal/logger"
)

// progressInterval is how often run prints progress.
var progressInterval = 500 * time.Millisecond

var runTaskNames []string

var runCmd = &cobra.Command{
	Use:   "run <tasks.toml>",
	Short: "Run harvest tasks",
	Long: `Runs the tasks declared in a task file, one after another.
Use --task to run only the named tasks. An interrupt (Ctrl+C) aborts the
running task; the record being published is allowed to finish.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationEngine: "true"},
	RunE:        runRun,
}

func init() {
	runCmd.Flags().StringSliceVarP(&runTaskNames, "task", "t", nil, "run only the named tasks (repeatable)")
	rootCmd.AddCommand(runCmd)
}

// runStats counts the events of one process.
type runStats struct {
	processed    atomic.Int64
	inputErrors  atomic.Int64
	outputErrors atomic.Int64
	aborted      atomic.Bool
}

func (s *runStats) listener() driving.Listener {
	return driving.ListenerFuncs{
		StatusChange: func(status domain.Status) {
			if status == domain.StatusAborting {
				s.aborted.Store(true)
			}
		},
		DataProcessed: func(domain.DataReference) { s.processed.Add(1) },
		InputError:    func(*domain.DataInputError) { s.inputErrors.Add(1) },
		OutputError:   func(*domain.DataOutputError) { s.outputErrors.Add(1) },
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	if engine == nil {
		return errNotConfigured
	}

	tasks, err := loadTasks(args[0])
	if err != nil {
		return err
	}
	defs, err := selectTasks(tasks, runTaskNames)
	if err != nil {
		return err
	}
	if len(defs) == 0 {
		cmd.Println("No tasks defined.")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var failed []string
	for _, def := range defs {
		if ctx.Err() != nil {
			break
		}
		stats, err := runTask(ctx, cmd, def)
		if err != nil {
			return fmt.Errorf("task %s: %w", def.Name, err)
		}
		if stats.aborted.Load() || stats.inputErrors.Load() > 0 {
			failed = append(failed, def.Name)
		}
	}

	if ctx.Err() != nil {
		return errors.New("interrupted")
	}
	if len(failed) > 0 {
		return fmt.Errorf("tasks failed: %s", strings.Join(failed, ", "))
	}
	return nil
}

// selectTasks returns the named tasks in the order given, or every task.
func selectTasks(tasks driven.TaskSource, names []string) ([]domain.TaskDefinition, error) {
	if len(names) == 0 {
		return tasks.Tasks(), nil
	}
	defs := make([]domain.TaskDefinition, 0, len(names))
	for _, name := range names {
		def, err := tasks.Task(name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// runTask submits def, begins it and waits for completion.
func runTask(ctx context.Context, cmd *cobra.Command, def domain.TaskDefinition) (*runStats, error) {
	logger.Section("Task " + def.Name)

	process, err := engine.Submit(ctx, def)
	if err != nil {
		return nil, err
	}

	stats := &runStats{}
	process.AddListener(stats.listener())

	cmd.Printf("Harvesting %s: %s\n", def.Name, process.Title())
	if err := process.Begin(); err != nil {
		return nil, err
	}

	if err := waitWithProgress(ctx, cmd, process, stats); err != nil {
		return nil, err
	}

	outcome := "Completed"
	if stats.aborted.Load() {
		outcome = "Aborted"
	}
	cmd.Printf("\r%s %s: %d records (%d output errors, %d input errors)\n",
		outcome, def.Name, stats.processed.Load(), stats.outputErrors.Load(), stats.inputErrors.Load())
	return stats, nil
}

// waitWithProgress waits for process to complete while printing progress.
// When ctx is cancelled the process is aborted and given shutdownTimeout to stop.
func waitWithProgress(ctx context.Context, cmd *cobra.Command, process driving.ProcessInstance, stats *runStats) error {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	interrupted := ctx.Done()
	var deadline <-chan time.Time
	var lastCount int64

	for {
		select {
		case <-process.Done():
			return nil
		case <-interrupted:
			interrupted = nil
			cmd.Println("\nInterrupted, aborting...")
			if err := process.Abort(); err != nil && !errors.Is(err, domain.ErrInvalidState) {
				return err
			}
			deadline = time.After(shutdownTimeout)
		case <-deadline:
			return fmt.Errorf("process %s did not stop within %s", process.ID(), shutdownTimeout)
		case <-ticker.C:
			if n := stats.processed.Load(); n > lastCount {
				cmd.Printf("\rProcessing... %d records", n)
				lastCount = n
			}
		}
	}
}
