package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"oligoscreen/internal/consensus"
	"oligoscreen/internal/model"
	"oligoscreen/internal/store"
	"oligoscreen/internal/writers"
)

// source names saved results: a JSON file, or a key when --store is set.
type source struct {
	in       string
	storeURL string
}

func (s *source) register(fs *pflag.FlagSet) {
	fs.StringVarP(&s.in, "in", "i", "-", "Results JSON file (- = stdin), or the key when --store is set")
	fs.StringVar(&s.storeURL, "store", "", "Read results from this store instead of a file")
}

func (s *source) load(ctx context.Context) (*model.ScreeningResults, error) {
	if s.storeURL == "" {
		return writers.ReadJSONFile(s.in)
	}
	st, err := store.Open(ctx, s.storeURL)
	if err != nil {
		return nil, runtimeErr(fmt.Errorf("open store: %w", err))
	}
	defer st.Close()
	res, err := st.Get(ctx, s.in)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", s.in, err)
	}
	if err != nil {
		return nil, runtimeErr(err)
	}
	return res, nil
}

func newRethresholdCmd(e *env) *cobra.Command {
	var (
		src      source
		out      outputFlags
		coverage float64
	)
	cmd := &cobra.Command{
		Use:   "rethreshold",
		Short: "Recompute variants needed for a new coverage threshold without re-aligning",
		Args:  cobra.NoArgs,
	}
	src.register(cmd.Flags())
	out.register(cmd.Flags(), "json")
	cmd.Flags().Float64Var(&coverage, "coverage", 0, "New coverage threshold percent (0,100]")
	_ = cmd.MarkFlagRequired("coverage")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if coverage <= 0 || coverage > 100 {
			return fmt.Errorf("%w: coverage threshold must be in (0,100] (got %g)", model.ErrInvalidParams, coverage)
		}
		if err := out.validate(); err != nil {
			return err
		}
		res, err := src.load(cmd.Context())
		if err != nil {
			return err
		}
		consensus.Retarget(res, coverage)
		return out.write(e.stdout, res)
	}
	return cmd
}

func newSummaryCmd(e *env) *cobra.Command {
	var (
		src    source
		out    outputFlags
		pretty bool
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Tabulate saved results per position",
		Args:  cobra.NoArgs,
	}
	src.register(cmd.Flags())
	out.register(cmd.Flags(), "tsv")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Variant blocks instead of a table (same as --format pretty)")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if pretty {
			out.format = "pretty"
		}
		if err := out.validate(); err != nil {
			return err
		}
		res, err := src.load(cmd.Context())
		if err != nil {
			return err
		}
		return out.write(e.stdout, res)
	}
	return cmd
}

func newRunsCmd(e *env) *cobra.Command {
	var storeURL string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List or delete results kept in a store",
	}
	cmd.PersistentFlags().StringVar(&storeURL, "store", "", "Store location (required)")
	_ = cmd.MarkPersistentFlagRequired("store")

	open := func(ctx context.Context) (store.Store, error) {
		st, err := store.Open(ctx, storeURL)
		if err != nil {
			return nil, runtimeErr(fmt.Errorf("open store: %w", err))
		}
		return st, nil
	}

	var prefix string
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored runs: key, template, size, saved at, run id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			infos, err := st.List(cmd.Context(), prefix)
			if err != nil {
				return runtimeErr(err)
			}
			bw := bufio.NewWriter(e.stdout)
			for _, in := range infos {
				_, _ = fmt.Fprintf(bw, "%s\t%s\t%d\t%s\t%s\n", in.Key, in.Template, in.Size, in.SavedAt.Format(time.RFC3339), in.RunID)
			}
			return runtimeErr(bw.Flush())
		},
	}
	list.Flags().StringVar(&prefix, "prefix", "", "Only keys starting with this prefix")

	rm := &cobra.Command{
		Use:   "rm KEY...",
		Short: "Delete stored runs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			for _, k := range args {
				ok, err := st.Delete(cmd.Context(), k)
				if err != nil {
					return runtimeErr(err)
				}
				if !ok {
					e.warnf("%s: not found", k)
				}
			}
			return nil
		},
	}
	cmd.AddCommand(list, rm)
	return cmd
}
