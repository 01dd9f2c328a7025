package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/hookstore/internal/config"
	"github.com/vango-dev/hookstore/pkg/effect"
	"github.com/vango-dev/hookstore/pkg/hooks"
	"github.com/vango-dev/hookstore/pkg/store"
)

type demoOptions struct {
	clicks       int
	comparer     string
	maxRerenders int
	dump         bool
	configPath   string
}

func demoCmd() *cobra.Command {
	var opts demoOptions

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Render two counter components in the terminal",
		Long: `Mount two counter components that each own a local count and
share a global total, click them, and print every render and effect.

Each counter's effect depends on count/2, so it runs on every other
click and cleans up the previous run first.

With --config, render.maxRerenders and effect.comparer are read from the
config file; an explicit --comparer still wins.

Examples:
  hookstore demo
  hookstore demo --clicks=6 --dump
  hookstore demo --config=hookstore.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.configPath != "" {
				cfg, err := loadConfig(serveOptions{configPath: opts.configPath})
				if err != nil {
					return err
				}
				applyDemoConfig(&opts, cfg, cmd.Flags().Changed("comparer"))
			}
			return runDemo(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.clicks, "clicks", "n", 4, "Clicks per counter")
	cmd.Flags().StringVar(&opts.comparer, "comparer", "serialized", "Dependency comparer: serialized or shallow")
	cmd.Flags().BoolVar(&opts.dump, "dump", false, "Dump final component state")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Config file for render and effect settings")

	return cmd
}

// counterState is what each counter component exposes to the demo driver.
type counterState struct {
	Name     string
	Count    int
	Total    int
	Renders  int
	Effects  []string
	Cleanups int

	click func()
}

func counterComponent(w io.Writer, state *counterState, total *store.Store[int]) hooks.RenderFunc {
	return func(o *hooks.Owner) {
		count, setCount := hooks.UseState(o, store.Value(0))
		sum, setTotal := hooks.UseGlobalState(o, total, store.Value(0))
		renders := hooks.UseRef(o, 0)
		renders.Current++

		state.Count = count
		state.Total = sum
		state.Renders = renders.Current
		state.click = func() {
			setCount(store.Update(func(c int) int { return c + 1 }))
			setTotal(store.Update(func(t int) int { return t + 1 }))
		}

		fmt.Fprintf(w, "  render %-6s count=%d total=%d (render #%d)\n", state.Name, count, sum, renders.Current)

		half := count / 2
		hooks.UseEffect(o, func() effect.Cleanup {
			msg := fmt.Sprintf("half=%d", half)
			state.Effects = append(state.Effects, msg)
			fmt.Fprintf(w, "  effect %-6s %s\n", state.Name, msg)
			return func() {
				state.Cleanups++
				fmt.Fprintf(w, "  clean  %-6s half=%d\n", state.Name, half)
			}
		}, []any{half})
	}
}

// applyDemoConfig copies render and effect settings from cfg.
func applyDemoConfig(opts *demoOptions, cfg *config.Config, comparerSet bool) {
	opts.maxRerenders = cfg.Render.MaxRerenders
	if !comparerSet && cfg.Effect.Comparer != "" {
		opts.comparer = cfg.Effect.Comparer
	}
}

func runDemo(w io.Writer, opts demoOptions) error {
	cmp, ok := effect.ComparerByName(opts.comparer)
	if !ok {
		return fmt.Errorf("unknown comparer %q", opts.comparer)
	}

	rootOpts := []hooks.Option{
		hooks.WithLogger(slog.Default()),
		hooks.WithEffectOptions(effect.WithComparer(cmp)),
	}
	if opts.maxRerenders > 0 {
		rootOpts = append(rootOpts, hooks.WithMaxRerenders(opts.maxRerenders))
	}
	root := hooks.NewRoot(rootOpts...)

	total := store.New[int](store.WithName("total"))
	states := []*counterState{{Name: "left"}, {Name: "right"}}

	fmt.Fprintln(w, "mount")
	for _, st := range states {
		if _, err := root.Mount(st.Name, counterComponent(w, st, total)); err != nil {
			return err
		}
	}

	for i := 0; i < opts.clicks; i++ {
		for _, st := range states {
			fmt.Fprintf(w, "click %s\n", st.Name)
			if err := root.Act(st.click); err != nil {
				return err
			}
		}
	}

	fmt.Fprintln(w, "unmount")
	root.Dispose()

	for _, st := range states {
		fmt.Fprintf(w, "%s: count=%d total=%d renders=%d effects=%d cleanups=%d\n",
			st.Name, st.Count, st.Total, st.Renders, len(st.Effects), st.Cleanups)
	}

	if opts.dump {
		pp.Fprintln(w, states)
	}
	return nil
}
