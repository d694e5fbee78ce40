package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/embedcache/cache"
	"github.com/jonwraymond/embedcache/config"
	"github.com/jonwraymond/embedcache/health"
)

// ErrUnhealthy is returned by doctor when a check fails.
var ErrUnhealthy = errors.New("embedcache: unhealthy")

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "embedcache",
		Short:         "Persistent cache for embeddings and generated definitions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context(), cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), 5*time.Second)
			defer cancel()
			return a.close(ctx)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&a.dir, "dir", "", "cache directory (overrides config and "+config.EnvCacheDir+")")
	root.PersistentFlags().StringVar(&a.op, "op", "", "operation name used in log lines")

	root.AddCommand(
		newEmbedCmd(a),
		newEmbedManyCmd(a),
		newDefineCmd(a),
		newKeyCmd(a),
		newDoctorCmd(a),
	)
	return root
}

func newEmbedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "embed <text>",
		Short: "Print the embedding of one text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.computer()
			if err != nil {
				return err
			}
			v, err := cache.NewSingleCache(a.store, a.opts...).GetOrCompute(cmd.Context(), args[0], c, a.callOptions()...)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), v)
		},
	}
}

func newEmbedManyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "embed-many <text>...",
		Short: "Print the embeddings of several texts as one cached batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.computer()
			if err != nil {
				return err
			}
			m, err := cache.NewBatchCache(a.store, a.opts...).GetOrCompute(cmd.Context(), args, c, a.callOptions()...)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), m)
		},
	}
}

type definition struct {
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

func newDefineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "define <name>...",
		Short: "Print definitions, generating only those not cached yet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.computer()
			if err != nil {
				return err
			}
			defs, err := cache.NewFillCache(a.store, a.opts...).Fill(cmd.Context(), args, c, a.callOptions()...)
			if err != nil {
				return err
			}
			out := make([]definition, len(args))
			for i, name := range args {
				out[i] = definition{Name: name, Definition: defs[i]}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

type keyOutput struct {
	Key    string `json:"key"`
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

func newKeyCmd(a *app) *cobra.Command {
	var batch, named bool

	cmd := &cobra.Command{
		Use:   "key <text>...",
		Short: "Print the cache key and entry path of an input",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := cache.NewKeyEncoder()
			var key cache.Key
			switch {
			case batch && named:
				return errors.New("--batch and --named are exclusive")
			case batch:
				key = keys.EncodeBatch(args)
			case len(args) != 1:
				return fmt.Errorf("expected one argument, got %d (use --batch for several)", len(args))
			case named:
				key = keys.EncodeNamed(args[0])
			default:
				key = keys.EncodeText(args[0])
			}

			exists, err := a.store.Exists(cmd.Context(), key)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), keyOutput{
				Key:    key.String(),
				Path:   a.store.Path(key),
				Exists: exists,
			})
		},
	}

	cmd.Flags().BoolVar(&batch, "batch", false, "key the arguments as one batch")
	cmd.Flags().BoolVar(&named, "named", false, "key the argument as a named map")
	return cmd
}

type checkOutput struct {
	Name     string         `json:"name"`
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Duration string         `json:"duration"`
	Error    string         `json:"error,omitempty"`
}

type doctorOutput struct {
	Status string        `json:"status"`
	Checks []checkOutput `json:"checks"`
}

func newDoctorCmd(a *app) *cobra.Command {
	var verify, offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the cache directory, credentials and the remote service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agg := health.NewAggregator()
			agg.Register(health.NewDirChecker(health.DirCheckerConfig{
				Dir:       a.cfg.Cache.Dir,
				Verify:    verify,
				Dimension: a.cfg.Cache.Dimension,
			}))
			agg.Register(health.NewCredentialsChecker(config.EnvAPIKey, a.cfg.Remote.APIKey))
			if !offline {
				if c, err := a.computer(); err == nil {
					agg.Register(health.NewPingChecker("remote", c.Ping))
				}
			}

			results := agg.CheckAll(cmd.Context())
			status := health.OverallStatus(results)
			out := doctorOutput{Status: status.String()}
			for _, r := range results {
				check := checkOutput{
					Name:     r.Name,
					Status:   r.Status.String(),
					Message:  r.Message,
					Details:  r.Details,
					Duration: r.Duration.String(),
				}
				if r.Error != nil {
					check.Error = r.Error.Error()
				}
				out.Checks = append(out.Checks, check)
			}
			if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if status == health.StatusUnhealthy {
				return ErrUnhealthy
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "check every cache entry parses and has the configured dimension")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip the remote service check")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
