package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"evprobe/internal/api"
	"evprobe/internal/config"
	"evprobe/internal/probe"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the probe result cache",
		Long: `Inspect and manage the probe result cache.

Commands:
  list     - List cached probe results, newest first
  remove   - Remove a specific entry by number (see 'list' for numbers)
  clear    - Remove all cached entries
  prune    - Remove expired entries`,
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheRemoveCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))

	return cacheCmd
}

// cacheWarning flags backends whose contents do not outlive the command.
func cacheWarning(cfg *config.Config) string {
	if cfg != nil && cfg.Cache.Backend == config.CacheBackendMemory {
		return "Cache backend is memory; entries only live for a single process."
	}
	return ""
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached probe results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if warn := cacheWarning(ctx.configValue()); warn != "" && !ctx.JSONMode() {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			return ctx.withProber(cmd.Context(), nil, func(prober *probe.Prober, _ *slog.Logger) error {
				entries, err := prober.Cache().Entries(cmd.Context())
				if err != nil {
					return err
				}
				views := api.FromCacheEntries(entries, time.Now())

				if ctx.JSONMode() {
					return writeJSON(cmd, views)
				}

				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "Probe cache: empty")
					return nil
				}
				fmt.Fprintf(out, "Probe cache: %d entries\n", len(views))
				fmt.Fprintln(out, renderCacheTable(views))
				return nil
			})
		},
	}
}

func renderCacheTable(views []api.CacheEntry) string {
	rows := make([][]string, 0, len(views))
	for i, view := range views {
		expires := view.ExpiresAt
		switch {
		case view.Indefinite:
			expires = "never"
		case view.Expired:
			expires = "expired"
		}
		identity := view.Identity
		if identity == "" {
			identity = view.Key
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			identity,
			view.Selector,
			strconv.Itoa(view.Streams),
			yesNo(view.HasFormat),
			view.StoredAt,
			expires,
		})
	}
	return renderTable(
		[]string{"#", "File", "Selector", "Streams", "Format", "Stored", "Expires"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
	)
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <number>",
		Short: "Remove a specific cache entry by number",
		Long: `Remove a specific cache entry by its number from 'evprobe cache list'.

Example:
  evprobe cache list        # Shows numbered list of cached results
  evprobe cache remove 2    # Removes entry #2 from the list`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entryNum, err := strconv.Atoi(args[0])
			if err != nil || entryNum < 1 {
				return fmt.Errorf("invalid entry number: %s (must be a positive integer)", args[0])
			}
			return ctx.withProber(cmd.Context(), nil, func(prober *probe.Prober, _ *slog.Logger) error {
				cache := prober.Cache()
				entries, err := cache.Entries(cmd.Context())
				if err != nil {
					return err
				}
				if entryNum > len(entries) {
					return fmt.Errorf("entry %d not found (cache holds %d entries)", entryNum, len(entries))
				}
				key := entries[entryNum-1].Key
				if err := cache.InvalidateRaw(cmd.Context(), key); err != nil {
					return err
				}

				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{
						"removed": true,
						"entry":   entryNum,
						"key":     key,
					})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed entry %d: %s\n", entryNum, key)
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProber(cmd.Context(), nil, func(prober *probe.Prober, _ *slog.Logger) error {
				cache := prober.Cache()
				entries, err := cache.Entries(cmd.Context())
				if err != nil {
					return err
				}
				if err := cache.Purge(cmd.Context()); err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"cleared": len(entries)})
				}
				printCount(cmd.OutOrStdout(), "Cleared", len(entries))
				return nil
			})
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProber(cmd.Context(), nil, func(prober *probe.Prober, _ *slog.Logger) error {
				removed, err := prober.Cache().Prune(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"pruned": removed})
				}
				printCount(cmd.OutOrStdout(), "Pruned", removed)
				return nil
			})
		},
	}
}

func printCount(out io.Writer, verb string, n int) {
	noun := "entries"
	if n == 1 {
		noun = "entry"
	}
	fmt.Fprintf(out, "%s %d %s\n", verb, n, noun)
}
