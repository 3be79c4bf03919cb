package app

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"oligoscreen/internal/config"
	"oligoscreen/internal/worklist"
)

func newWorklistCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worklist",
		Short: "Run a file of screening jobs one after another",
	}
	cmd.AddCommand(newWorklistRunCmd(e), newWorklistListCmd(e))
	return cmd
}

func loadJobs(cmd *cobra.Command, e *env, analysis *analysisFlags, path string) ([]worklist.Job, int, error) {
	if err := config.BindFlags(analysis.v, cmd.Flags()); err != nil {
		return nil, 0, err
	}
	if err := config.ReadFile(analysis.v, e.configPath); err != nil {
		return nil, 0, err
	}
	specs, threads, err := worklist.LoadSpecs(path, analysis.v)
	if err != nil {
		return nil, 0, err
	}
	jobs := make([]worklist.Job, 0, len(specs))
	for i, s := range specs {
		j, err := worklist.Build(s)
		if err != nil {
			return nil, 0, fmt.Errorf("job %d: %w", i+1, err)
		}
		jobs = append(jobs, j)
	}
	return jobs, threads, nil
}

func newWorklistRunCmd(e *env) *cobra.Command {
	var (
		rt   runtimeFlags
		skip []uint
	)
	cmd := &cobra.Command{
		Use:   "run JOBS_FILE",
		Short: "Process every job; each finished run is saved to --store as <template>_<id>.json",
		Long: `Jobs are read from a YAML, JSON or TOML file. Analysis flags on the command
line are defaults that top-level keys in the file, then per-job keys,
override. A failed job or a failed save is reported and the queue moves on.
Prints one TSV line per job: id, template, status, key, error.

The first interrupt lets the running job finish and leaves the rest
pending; a second one aborts.`,
		Args: cobra.ExactArgs(1),
	}
	analysis := newAnalysisFlags(cmd)
	rt.register(cmd)
	cmd.Flags().UintSliceVar(&skip, "skip", nil, "Job ids (1-based, file order) to leave out; repeatable")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		jobs, threads, err := loadJobs(cmd, e, analysis, args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		sess, err := rt.open(ctx, e)
		if err != nil {
			return runtimeErr(err)
		}
		defer sess.close()
		if sess.store == nil {
			e.warnf("no --store given; results are not saved")
		}

		opts := worklist.Options{
			Threads:  threads,
			Store:    sess.store,
			Log:      e.logger(),
			Progress: sess.progress,
			Observer: sess.observer(),
		}
		if sess.recorder != nil {
			opts.Jobs = sess.recorder
		}
		q := worklist.New(opts)
		for _, j := range jobs {
			q.Add(j)
		}
		for _, id := range skip {
			if !q.Remove(uint64(id)) {
				e.warnf("--skip %d: no such job", id)
			}
		}
		release := e.intr.onFirst(func() {
			e.warnf("interrupt: finishing the current job, interrupt again to abort")
			q.Stop()
		})
		procErr := q.Process(ctx)
		release()

		bw := bufio.NewWriter(e.stdout)
		failed := 0
		for _, c := range q.Completed() {
			status, msg := "ok", ""
			switch {
			case c.Err != nil:
				status, msg = "failed", c.Err.Error()
				failed++
			case c.SaveErr != nil:
				status, msg = "save_failed", c.SaveErr.Error()
				failed++
			}
			_, _ = fmt.Fprintf(bw, "%d\t%s\t%s\t%s\t%s\n", c.Job.ID, c.Job.TemplateFile, status, c.Key, oneLine(msg))
		}
		for _, j := range q.Pending() {
			_, _ = fmt.Fprintf(bw, "%d\t%s\tpending\t\t\n", j.ID, j.TemplateFile)
		}
		if err := bw.Flush(); err != nil && procErr == nil {
			return runtimeErr(err)
		}
		if err := q.LastSaveError(); err != nil {
			e.warnf("last auto-save: %v", err)
		}
		if procErr != nil {
			return procErr
		}
		if failed > 0 {
			return runtimeErr(fmt.Errorf("%d of %d jobs failed", failed, len(jobs)))
		}
		return nil
	}
	return cmd
}

func newWorklistListCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list JOBS_FILE",
		Short: "Load and validate a jobs file without running it",
		Args:  cobra.ExactArgs(1),
	}
	analysis := newAnalysisFlags(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		jobs, threads, err := loadJobs(cmd, e, analysis, args[0])
		if err != nil {
			return err
		}
		bw := bufio.NewWriter(e.stdout)
		_, _ = fmt.Fprintf(bw, "# %d jobs, threads=%d\n", len(jobs), threads)
		for i, j := range jobs {
			excl := 0
			if j.Exclusivity != nil {
				excl = j.Exclusivity.Len()
			}
			_, _ = fmt.Fprintf(bw, "%d\t%s\t%d bp\t%d refs\t%d exclusivity\t%d-%d bp\t%s\n",
				i+1, j.TemplateFile, len(j.Template.Sequence), j.References.Len(), excl,
				j.Params.MinOligoLength, j.Params.MaxOligoLength, j.Params.Method)
		}
		return runtimeErr(bw.Flush())
	}
	return cmd
}

func oneLine(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "\t", " ")
}
