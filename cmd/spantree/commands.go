/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"chainguard.dev/spanevals/agents/spantree"
	"chainguard.dev/spanevals/internal/spanfile"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
)

// config holds rendering defaults; every field can be overridden by a flag.
type config struct {
	IncludeIDs        bool       `env:"SPANTREE_INCLUDE_IDS,default=false"`
	IncludeTimestamps bool       `env:"SPANTREE_INCLUDE_TIMESTAMPS,default=false"`
	IncludeDurations  bool       `env:"SPANTREE_INCLUDE_DURATIONS,default=false"`
	Shallow           bool       `env:"SPANTREE_SHALLOW,default=false"`
	LogLevel          slog.Level `env:"SPANTREE_LOG_LEVEL,default=WARN"`
}

func (c config) renderOptions() []spantree.RenderOption {
	var opts []spantree.RenderOption
	if c.IncludeIDs {
		opts = append(opts, spantree.WithSpanID(), spantree.WithTraceID())
	}
	if c.IncludeTimestamps {
		opts = append(opts, spantree.WithStartTimestamp())
	}
	if c.IncludeDurations {
		opts = append(opts, spantree.WithDuration())
	}
	if c.Shallow {
		opts = append(opts, spantree.WithoutChildren())
	}
	return opts
}

func newRootCmd(cfg config) *cobra.Command {
	root := &cobra.Command{
		Use:          "spantree",
		Short:        "Rebuild and query span trees from OTLP JSON",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.BoolVar(&cfg.IncludeIDs, "ids", cfg.IncludeIDs, "Render span and trace IDs")
	flags.BoolVar(&cfg.IncludeTimestamps, "timestamps", cfg.IncludeTimestamps, "Render start timestamps")
	flags.BoolVar(&cfg.IncludeDurations, "durations", cfg.IncludeDurations, "Render durations")
	flags.BoolVar(&cfg.Shallow, "shallow", cfg.Shallow, "Do not render children")

	root.AddCommand(newRenderCmd(&cfg), newFindCmd(&cfg))
	return root
}

func newRenderCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "render FILE",
		Short: "Render the span tree of FILE (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := loadTree(cmd, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tree.Render(cfg.renderOptions()...))
			return err
		},
	}
}

type findOptions struct {
	name  string
	attrs []string
	first bool
	json  bool
}

func newFindCmd(cfg *config) *cobra.Command {
	var opts findOptions
	cmd := &cobra.Command{
		Use:   "find FILE",
		Short: "Print the spans of FILE matching a name and attributes",
		Long: `Print the spans of FILE matching --name and every --attr.

Attributes are written key=value for strings, or key:type=value with type one
of int, float, bool or string. A value of a different type never matches.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			attrs, err := parseAttrs(opts.attrs)
			if err != nil {
				return err
			}
			tree, err := loadTree(cmd, args[0])
			if err != nil {
				return err
			}

			pred := spantree.Matching(opts.name, attrs...)
			var matches []*spantree.Node
			if opts.first {
				if n := tree.FindFirst(pred); n != nil {
					matches = append(matches, n)
				}
			} else {
				matches = tree.FindAll(pred)
			}
			clog.FromContext(cmd.Context()).With("matches", len(matches)).Debug("Search complete")

			out := cmd.OutOrStdout()
			if opts.json {
				spans := make([]spantree.Span, len(matches))
				for i, n := range matches {
					spans[i] = n.Span()
				}
				return spanfile.Write(out, spans)
			}
			for _, n := range matches {
				if _, err := fmt.Fprintln(out, n.Render(cfg.renderOptions()...)); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "", "Span name to match (empty matches any)")
	cmd.Flags().StringArrayVar(&opts.attrs, "attr", nil, "Attribute to match, key=value or key:type=value (repeatable)")
	cmd.Flags().BoolVar(&opts.first, "first", false, "Print only the first match")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print matching spans as JSON")
	return cmd
}

func loadTree(cmd *cobra.Command, path string) (*spantree.Tree, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening spans: %w", err)
		}
		defer f.Close()
		r = f
	}
	spans, err := spanfile.Read(r)
	if err != nil {
		return nil, err
	}
	tree := spantree.Build(spans)
	clog.FromContext(cmd.Context()).With("file", path, "spans", len(spans), "roots", len(tree.Roots())).Debug("Loaded span tree")
	return tree, nil
}

func parseAttrs(raw []string) ([]attribute.KeyValue, error) {
	out := make([]attribute.KeyValue, 0, len(raw))
	for _, s := range raw {
		kv, err := parseAttr(s)
		if err != nil {
			return nil, err
		}
		out = append(out, kv)
	}
	return out, nil
}

func parseAttr(s string) (attribute.KeyValue, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return attribute.KeyValue{}, fmt.Errorf("invalid attribute %q: want key=value", s)
	}
	key, typ, typed := strings.Cut(key, ":")
	if !typed {
		typ = "string"
	}
	switch typ {
	case "string":
		return attribute.String(key, value), nil
	case "int":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return attribute.KeyValue{}, fmt.Errorf("invalid attribute %q: %w", s, err)
		}
		return attribute.Int64(key, n), nil
	case "float":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return attribute.KeyValue{}, fmt.Errorf("invalid attribute %q: %w", s, err)
		}
		return attribute.Float64(key, f), nil
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return attribute.KeyValue{}, fmt.Errorf("invalid attribute %q: %w", s, err)
		}
		return attribute.Bool(key, b), nil
	default:
		return attribute.KeyValue{}, fmt.Errorf("invalid attribute %q: unknown type %q", s, typ)
	}
}
