package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/cwbudde/algo-fxchain/codec"
	"github.com/cwbudde/algo-fxchain/dsp/analysis"
	"github.com/cwbudde/algo-fxchain/dsp/buffer"
	"github.com/cwbudde/algo-fxchain/dsp/effectchain"
	"github.com/cwbudde/algo-fxchain/dsp/graph"
)

// RenderChannels is the channel count of offline renders.
const RenderChannels = 2

type renderJob struct {
	chain *effectchain.Chain
	buf   *buffer.Buffer
}

func (e *Engine) snapshot() (renderJob, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.buf == nil {
		return renderJob{}, ErrNoBuffer
	}

	return renderJob{chain: e.chain.Clone(), buf: e.buf}, nil
}

// RenderOffline processes the whole loaded buffer through a snapshot of
// the chain on a fresh offline context at the buffer's sample rate and
// returns a stereo buffer of the same length. The live graph keeps
// playing. Failures wrap ErrRenderFailure; ctx cancellation is checked
// between render quanta.
func (e *Engine) RenderOffline(ctx context.Context) (*buffer.Buffer, error) {
	job, err := e.snapshot()
	if err != nil {
		return nil, err
	}

	started := time.Now()

	e.log.Info("render started",
		"frames", job.buf.Len(), "sample_rate", job.buf.SampleRate(), "order", job.chain.Order())

	out, err := e.render(ctx, job)
	if err != nil {
		e.log.Error("render failed", "err", err)

		return nil, fmt.Errorf("%w: %w", ErrRenderFailure, err)
	}

	attrs := []any{"elapsed", time.Since(started)}
	if report, err := analysis.MeasureLoudness(out); err == nil {
		attrs = append(attrs, "lufs", report.Integrated, "peak_db", report.PeakDB)
	}

	e.log.Info("render finished", attrs...)

	return out, nil
}

func (e *Engine) render(ctx context.Context, job renderJob) (*buffer.Buffer, error) {
	offline, err := graph.NewOffline(RenderChannels, job.buf.Len(), job.buf.SampleRate())
	if err != nil {
		return nil, err
	}
	defer offline.Close()

	units, err := e.builder.BuildAll(offline)
	if err != nil {
		return nil, err
	}

	err = e.syncer.ApplyAll(offline, job.chain, units)
	if err != nil {
		return nil, err
	}

	src, err := offline.CreateBufferSource(job.buf)
	if err != nil {
		return nil, err
	}

	err = effectchain.Wire(offline, src.ID(), graph.Destination, job.chain.Order(), units)
	if err != nil {
		return nil, err
	}

	err = src.Start(0, 0)
	if err != nil {
		return nil, err
	}

	return offline.StartRendering(ctx)
}

// RenderToFile renders offline and encodes the result as 16-bit PCM WAV.
func (e *Engine) RenderToFile(ctx context.Context) ([]byte, error) {
	out, err := e.RenderOffline(ctx)
	if err != nil {
		return nil, err
	}

	data, err := codec.EncodeWAV(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderFailure, err)
	}

	return data, nil
}

// RenderToPath renders offline and writes the WAV file at path.
func (e *Engine) RenderToPath(ctx context.Context, path string) error {
	out, err := e.RenderOffline(ctx)
	if err != nil {
		return err
	}

	err = codec.WriteWAVFile(path, out)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRenderFailure, err)
	}

	return nil
}
