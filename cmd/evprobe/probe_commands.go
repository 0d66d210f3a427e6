package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"evprobe/internal/api"
	"evprobe/internal/media/ffprobe"
	"evprobe/internal/probe"
)

type referenceFlags struct {
	name       string
	persistent bool
}

func (f *referenceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Stable identity used as the cache key instead of the path")
	cmd.Flags().BoolVar(&f.persistent, "persistent", false, "Treat the file as persistent so its metadata is cached indefinitely")
}

func (f *referenceFlags) reference(path string) (probe.FileReference, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("file path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", path, err)
	}
	name := strings.TrimSpace(f.name)
	if f.persistent {
		return probe.Persistent{Name: name, Path: abs}, nil
	}
	return probe.Transient{Name: name, Path: abs}, nil
}

func newStreamCommand(ctx *commandContext) *cobra.Command {
	var refFlags referenceFlags

	cmd := &cobra.Command{
		Use:   "stream <path> [selector]",
		Short: "Show one stream of a media file",
		Long: `Show one stream of a media file.

The selector has the form <type>:<index> where type is v (video), a (audio),
s (subtitle), d (data) or t (attachment), and index counts streams of that
type only. The default selector is v:0.

Examples:
  evprobe stream movie.mkv
  evprobe stream movie.mkv a:1 --json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refFlags.reference(args[0])
			if err != nil {
				return err
			}
			selector := probe.DefaultSelector
			if len(args) == 2 {
				selector = args[1]
			}
			return ctx.withProber(cmd.Context(), nil, func(prober *probe.Prober, _ *slog.Logger) error {
				session := prober.NewSession(ref)
				stream, err := session.Stream(cmd.Context(), selector)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, api.StreamResponse{
						File:     ref.Identity(),
						Selector: selector,
						Stream:   api.FromStream(stream),
					})
				}
				printStream(cmd.OutOrStdout(), ref.Identity(), selector, stream)
				return nil
			})
		},
	}
	refFlags.register(cmd)
	return cmd
}

func newStreamsCommand(ctx *commandContext) *cobra.Command {
	var refFlags referenceFlags

	cmd := &cobra.Command{
		Use:   "streams <path>",
		Short: "List every stream of a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refFlags.reference(args[0])
			if err != nil {
				return err
			}
			return ctx.withProber(cmd.Context(), nil, func(prober *probe.Prober, _ *slog.Logger) error {
				streams, err := prober.NewSession(ref).Streams(cmd.Context())
				if err != nil {
					return err
				}
				resp := api.NewStreamsResponse(ref.Identity(), streams)
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(streams) == 0 {
					fmt.Fprintf(out, "%s: no streams\n", ref.Identity())
					return nil
				}
				fmt.Fprintln(out, renderStreamTable(streams))
				fmt.Fprintf(out, "%d video, %d audio, %d total\n", resp.VideoStreams, resp.AudioStreams, len(streams))
				return nil
			})
		},
	}
	refFlags.register(cmd)
	return cmd
}

func newFormatCommand(ctx *commandContext) *cobra.Command {
	var refFlags referenceFlags

	cmd := &cobra.Command{
		Use:   "format <path>",
		Short: "Show container metadata of a media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refFlags.reference(args[0])
			if err != nil {
				return err
			}
			return ctx.withProber(cmd.Context(), nil, func(prober *probe.Prober, _ *slog.Logger) error {
				format, err := prober.NewSession(ref).Format(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, api.FormatResponse{
						File:   ref.Identity(),
						Format: api.FromFormat(format),
					})
				}
				printFormat(cmd.OutOrStdout(), ref.Identity(), format)
				return nil
			})
		},
	}
	refFlags.register(cmd)
	return cmd
}

func printStream(out io.Writer, file, selector string, stream ffprobe.Stream) {
	fmt.Fprintf(out, "%s [%s]\n", file, selector)
	index, ok := stream.Index()
	indexText := "-"
	if ok {
		indexText = strconv.Itoa(index)
	}
	codec, codecOK := stream.CodecName()
	longName, longOK := stream.CodecLongName()
	profile, profileOK := stream.Profile()
	pixFmt, pixOK := stream.PixelFormat()
	lines := [][2]string{
		{"Index", indexText},
		{"Type", streamLabel(stream)},
		{"Codec", valueOrDash(codec, codecOK)},
		{"Codec name", valueOrDash(longName, longOK)},
		{"Profile", valueOrDash(profile, profileOK)},
		{"Shape", streamShape(stream)},
		{"Pixel format", valueOrDash(pixFmt, pixOK)},
		{"Duration", formatSeconds(stream.Duration())},
		{"Bit rate", formatBitRate(stream.BitRate())},
	}
	for _, line := range lines {
		fmt.Fprintf(out, "  %-13s %s\n", line[0]+":", line[1])
	}
}

func renderStreamTable(streams []ffprobe.Stream) string {
	rows := make([][]string, 0, len(streams))
	for _, stream := range streams {
		index := "-"
		if value, ok := stream.Index(); ok {
			index = strconv.Itoa(value)
		}
		codec, codecOK := stream.CodecName()
		rows = append(rows, []string{
			index,
			streamLabel(stream),
			valueOrDash(codec, codecOK),
			streamShape(stream),
			formatSeconds(stream.Duration()),
			formatBitRate(stream.BitRate()),
		})
	}
	return renderTable(
		[]string{"#", "Type", "Codec", "Shape", "Duration", "Bit rate"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	)
}

func printFormat(out io.Writer, file string, format ffprobe.Format) {
	fmt.Fprintln(out, file)
	name, nameOK := format.FormatName()
	longName, longOK := format.FormatLongName()
	streams := "-"
	if count, ok := format.StreamCount(); ok {
		streams = strconv.Itoa(count)
	}
	lines := [][2]string{
		{"Container", valueOrDash(name, nameOK)},
		{"Long name", valueOrDash(longName, longOK)},
		{"Streams", streams},
		{"Duration", formatSeconds(format.Duration())},
		{"Size", formatSize(format.Size())},
		{"Bit rate", formatBitRate(format.BitRate())},
	}
	for _, line := range lines {
		fmt.Fprintf(out, "  %-10s %s\n", line[0]+":", line[1])
	}
}
