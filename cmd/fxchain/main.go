// Command fxchain runs an audio file through the effect chain and either
// renders the result to a WAV file or plays it on the default output.
//
// Usage:
//
//	fxchain [flags] input-file
//
// Examples:
//
//	fxchain -list
//	fxchain -out render.wav -set delay.mix=0.5 -set reverb.decay=3.5 song.mp3
//	fxchain -order reverb,eq,compressor,delay -bypass compressor -play song.wav
//	fxchain -config fx.yaml -prefs ~/.config/fxchain/prefs.json -play song.wav
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/algo-fxchain/config"
	"github.com/cwbudde/algo-fxchain/device"
	"github.com/cwbudde/algo-fxchain/dsp/effectchain"
	"github.com/cwbudde/algo-fxchain/engine"
	"github.com/cwbudde/algo-fxchain/prefs"
)

// multiFlag collects repeated string flags.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func main() {
	var sets, bypass multiFlag

	configPath := flag.String("config", "", "YAML configuration file")
	prefsPath := flag.String("prefs", "", "preference file for the persisted chain order (overrides config)")
	out := flag.String("out", "", "render the processed file to this WAV path")
	play := flag.Bool("play", false, "play the processed file on the default audio output")
	order := flag.String("order", "", "comma-separated chain order, e.g. reverb,eq,compressor,delay")
	list := flag.Bool("list", false, "list effects and their parameters")
	verbose := flag.Bool("v", false, "log debug events")
	flag.Var(&sets, "set", "effect.param=value (repeatable)")
	flag.Var(&bypass, "bypass", "effect to bypass (repeatable)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fxchain [flags] input-file\n\n")
		fmt.Fprintf(os.Stderr, "Processes an audio file through an EQ, compressor, delay and reverb chain.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *list {
		printCatalog(effectchain.DefaultCatalog())
		return
	}

	if flag.NArg() != 1 || (*out == "" && !*play) {
		flag.Usage()
		os.Exit(2)
	}

	err := run(logger, runArgs{
		input:      flag.Arg(0),
		configPath: *configPath,
		prefsPath:  *prefsPath,
		out:        *out,
		play:       *play,
		order:      *order,
		sets:       sets,
		bypass:     bypass,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type runArgs struct {
	input, configPath, prefsPath, out string
	play                              bool
	order                             string
	sets, bypass                      []string
}

func run(logger *slog.Logger, args runArgs) error {
	cfg := config.Default()

	if args.configPath != "" {
		var err error

		cfg, err = config.Load(args.configPath)
		if err != nil {
			return err
		}
	}

	if args.prefsPath != "" {
		cfg.PrefsPath = args.prefsPath
	}

	opts := []engine.Option{engine.WithLogger(logger)}
	if cfg.PrefsPath != "" {
		opts = append(opts, engine.WithStore(prefs.NewFileStore(cfg.PrefsPath)))
	}

	e, err := engine.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer e.Close()

	err = e.LoadFile(args.input)
	if err != nil {
		return err
	}

	err = configure(e, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if args.out != "" {
		err = e.RenderToPath(ctx, args.out)
		if err != nil {
			return err
		}

		logger.Info("wrote render", "path", args.out)
	}

	if args.play {
		return playToEnd(ctx, e, logger)
	}

	return nil
}

func configure(e *engine.Engine, args runArgs) error {
	if args.order != "" {
		err := e.Reorder(parseOrder(args.order))
		if err != nil {
			return err
		}
	}

	for _, s := range args.sets {
		effectID, paramID, value, err := parseSet(s)
		if err != nil {
			return err
		}

		err = e.SetParameter(effectID, paramID, value)
		if err != nil {
			return err
		}
	}

	for _, id := range args.bypass {
		err := e.SetBypass(strings.TrimSpace(id), true)
		if err != nil {
			return err
		}
	}

	return nil
}

// parseOrder splits a comma-separated effect list, trimming each id.
func parseOrder(s string) []string {
	ids := strings.Split(s, ",")
	for i, id := range ids {
		ids[i] = strings.TrimSpace(id)
	}

	return ids
}

func parseSet(s string) (effectID, paramID string, value float64, err error) {
	key, raw, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", 0, fmt.Errorf("invalid -set %q: want effect.param=value", s)
	}

	effectID, paramID, ok = strings.Cut(strings.TrimSpace(key), ".")
	if !ok {
		return "", "", 0, fmt.Errorf("invalid -set %q: want effect.param=value", s)
	}

	value, err = strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("invalid -set %q: %w", s, err)
	}

	return effectID, paramID, value, nil
}

func playToEnd(ctx context.Context, e *engine.Engine, logger *slog.Logger) error {
	cfg := e.Config()

	out, err := device.Open(e, cfg.SampleRate, cfg.Channels,
		device.WithLogger(logger), device.WithBufferSize(50*time.Millisecond))
	if err != nil {
		return err
	}

	defer func() {
		if cerr := out.Close(); cerr != nil {
			logger.Warn("close output", "err", cerr)
		}
	}()

	err = e.Play()
	if err != nil {
		return err
	}

	out.Play()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.Pause()

			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}

			return ctx.Err()
		case <-ticker.C:
			if e.State() != engine.Playing {
				return nil
			}

			m := e.Meter()
			logger.Debug("meter",
				"position", fmt.Sprintf("%.2f/%.2f", e.Position(), e.Duration()),
				"rms_db", m.RMSDB, "peak_db", m.PeakDB, "reduction_db", e.GainReduction())
		}
	}
}

func printCatalog(c *effectchain.Catalog) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "Effect\tParameter\tMin\tMax\tDefault\tStep\tUnit\n"); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: failed to write output header: %v\n", err)
		return
	}

	for _, id := range c.IDs() {
		d, err := c.Describe(id)
		if err != nil {
			continue
		}

		for _, p := range d.Parameters {
			if _, err := fmt.Fprintf(tw, "%s\t%s\t%g\t%g\t%g\t%g\t%s\n",
				id, p.ID, p.Min, p.Max, p.Default, p.Step, p.Unit); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "error: failed to write output row: %v\n", err)
				return
			}
		}
	}

	if err := tw.Flush(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}
