package main

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-h5dap/config"
	"github.com/robert-malhotra/go-h5dap/dtype"
	"github.com/robert-malhotra/go-h5dap/h5dap"
	"github.com/robert-malhotra/go-h5dap/storage/h5file"
)

// Version is set at build time.
var Version = "dev"

type globalFlags struct {
	config  string
	lenient bool
	dap4    bool
	metrics bool
}

func newRootCmd() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:          "h5dap",
		Short:        "Read HDF5 variables as DAP values",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&g.config, "config", "c", "", "configuration file")
	root.PersistentFlags().BoolVar(&g.lenient, "lenient", false, "drop record members of unsupported type")
	root.PersistentFlags().BoolVar(&g.dap4, "dap4", false, "decode for the DAP4 value model")
	root.PersistentFlags().BoolVar(&g.metrics, "metrics", false, "print read metrics after the command")

	root.AddCommand(newReadCmd(&g), newDescribeCmd(&g), newListCmd(&g), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "h5dap %s\n", Version)
		},
	}
}

// session is the state shared by commands that open a file.
type session struct {
	cfg      *config.Config
	log      *zap.Logger
	file     *h5file.File
	registry *prometheus.Registry
	reader   *h5dap.Reader
}

func openSession(g *globalFlags, path string) (*session, error) {
	cfg, err := config.Load(g.config)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if g.lenient {
		cfg.Decode.Lenient = true
	}
	if g.dap4 {
		cfg.Decode.Target = dtype.TargetDAP4.String()
	}

	log, err := cfg.Logger()
	if err != nil {
		return nil, fmt.Errorf("configuring logging: %w", err)
	}

	f, err := h5file.Open(path, append(cfg.StoreOptions(), h5file.WithLogger(log))...)
	if err != nil {
		_ = log.Sync()
		return nil, err
	}

	s := &session{cfg: cfg, log: log, file: f}
	opts := append(cfg.ReaderOptions(), h5dap.WithLogger(log))
	if cfg.Metrics.Enabled || g.metrics {
		s.registry = prometheus.NewRegistry()
		opts = append(opts, h5dap.WithMetrics(h5dap.NewMetrics(s.registry)))
	}
	s.reader = h5dap.NewReader(f, opts...)
	return s, nil
}

func (s *session) Close() error {
	err := s.file.Close()
	_ = s.log.Sync()
	return err
}

// printMetrics writes the gathered metrics in the Prometheus text
// exposition format.
func (s *session) printMetrics(w io.Writer) error {
	if s.registry == nil {
		return nil
	}
	families, err := s.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// withSession opens path, runs fn and closes the session, printing
// metrics when asked.
func withSession(cmd *cobra.Command, g *globalFlags, path string, fn func(*session) error) error {
	s, err := openSession(g, path)
	if err != nil {
		return err
	}
	err = fn(s)
	if g.metrics {
		err = multierr.Append(err, s.printMetrics(cmd.ErrOrStderr()))
	}
	return multierr.Append(err, s.Close())
}
