package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"oligoscreen/internal/config"
	"oligoscreen/internal/fasta"
	"oligoscreen/internal/metrics"
	"oligoscreen/internal/model"
	"oligoscreen/internal/screen"
	"oligoscreen/internal/store"
	"oligoscreen/internal/worklist"
	"oligoscreen/internal/writers"
)

// analysisFlags binds the shared analysis flags of a command to viper and
// resolves them, together with --config and OLIGOSCREEN_*, on demand.
type analysisFlags struct {
	v *viper.Viper
}

func newAnalysisFlags(cmd *cobra.Command) *analysisFlags {
	a := &analysisFlags{v: config.New()}
	config.AddFlags(cmd.Flags())
	return a
}

func (a *analysisFlags) load(cmd *cobra.Command, e *env) (model.AnalysisParams, error) {
	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return model.AnalysisParams{}, err
	}
	if err := config.ReadFile(a.v, e.configPath); err != nil {
		return model.AnalysisParams{}, err
	}
	return config.Load(a.v)
}

// runtimeFlags are the observability and persistence flags of commands
// that run screens.
type runtimeFlags struct {
	storeURL    string
	metricsAddr string
	progress    bool
}

func (r *runtimeFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&r.storeURL, "store", "", "Save results to DIR, memory://, s3://BUCKET/PREFIX, sqlite://PATH or postgres://DSN")
	fs.StringVar(&r.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	fs.BoolVar(&r.progress, "progress", false, "Stream progress events as JSON lines on stderr")
}

// session holds what runtimeFlags opened; close releases it.
type session struct {
	store    store.Store
	recorder *metrics.Recorder
	progress chan<- model.Progress
	closers  []func() error
}

func (r *runtimeFlags) open(ctx context.Context, e *env) (*session, error) {
	s := &session{}
	if r.storeURL != "" {
		st, err := store.Open(ctx, r.storeURL)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		s.store = st
		s.closers = append(s.closers, st.Close)
	}
	if r.metricsAddr != "" {
		s.recorder = metrics.NewRecorder()
		mctx, cancel := context.WithCancel(ctx)
		addr, done, err := s.recorder.Serve(mctx, r.metricsAddr)
		if err != nil {
			cancel()
			s.close()
			return nil, fmt.Errorf("metrics listener: %w", err)
		}
		s.closers = append(s.closers, func() error {
			cancel()
			return <-done
		})
		e.logger().WithField("addr", addr).Info("serving metrics")
	}
	if r.progress {
		in, done := writers.StartProgressWriter(e.stderr, 64)
		s.progress = in
		s.closers = append(s.closers, func() error {
			close(in)
			return <-done
		})
	}
	return s, nil
}

func (s *session) observer() screen.Observer {
	if s.recorder == nil {
		return nil
	}
	return s.recorder
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func newScreenCmd(e *env) *cobra.Command {
	var (
		templatePath string
		refPaths     []string
		exclPaths    []string
		key          string
		out          outputFlags
		rt           runtimeFlags
	)
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Screen a template against reference sequences",
		Example: `  oligoscreen screen -t template.fa -r refs.fa --min-length 18 --max-length 25
  oligoscreen screen -t template.fa -r refs.fa -e offtarget.fa --method fixed --max-ambiguities 2 -f tsv`,
		Args: cobra.NoArgs,
	}
	analysis := newAnalysisFlags(cmd)
	fs := cmd.Flags()
	fs.StringVarP(&templatePath, "template", "t", "", "Template FASTA (first record, ACGT only)")
	fs.StringSliceVarP(&refPaths, "references", "r", nil, "Reference FASTA file(s); - = stdin")
	fs.StringSliceVarP(&exclPaths, "exclusivity", "e", nil, "Exclusivity FASTA file(s); enables differential scoring")
	fs.StringVar(&key, "key", "", "Store key (default <template file>.json)")
	out.register(fs, "json")
	rt.register(cmd)
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("references")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		params, err := analysis.load(cmd, e)
		if err != nil {
			return err
		}
		if err := out.validate(); err != nil {
			return err
		}
		tmpl, err := fasta.ReadTemplate(templatePath)
		if err != nil {
			return err
		}
		refs, err := fasta.ReadSets(refPaths...)
		if err != nil {
			return err
		}
		var excl *model.SequenceSet
		if len(exclPaths) > 0 {
			set, err := fasta.ReadSets(exclPaths...)
			if err != nil {
				return err
			}
			excl = &set
		}
		if params.MaxOligoLength > len(tmpl.Sequence) {
			e.warnf("template %s is %d bp; lengths above it are reported as skipped", tmpl.Name, len(tmpl.Sequence))
		}

		ctx := cmd.Context()
		sess, err := rt.open(ctx, e)
		if err != nil {
			return runtimeErr(err)
		}
		defer sess.close()

		log := e.logger()
		start := time.Now()
		res, err := screen.Run(ctx, tmpl, refs, screen.Config{
			Params:      params,
			Exclusivity: excl,
			Progress:    sess.progress,
			Observer:    sess.observer(),
			Log:         log,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, model.ErrInvalidParams) {
				return err
			}
			return runtimeErr(err)
		}
		log.WithFields(logrus.Fields{
			"template":   tmpl.Name,
			"references": refs.Len(),
			"lengths":    len(res.ResultsByLength),
			"elapsed":    time.Since(start).Round(time.Millisecond),
		}).Info("screening finished")

		if sess.store != nil {
			if key == "" {
				key = worklist.SanitizeName(filepath.Base(templatePath)) + ".json"
			}
			info, err := sess.store.Put(ctx, key, res)
			if err != nil {
				return runtimeErr(fmt.Errorf("save results: %w", err))
			}
			log.WithFields(logrus.Fields{"key": info.Key, "run_id": info.RunID}).Info("results saved")
		}
		return out.write(e.stdout, res)
	}
	return cmd
}
