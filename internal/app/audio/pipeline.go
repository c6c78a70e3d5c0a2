// Package audio converts the live local audio track into discrete
// fixed-interval chunks for the translation transport. Loss-tolerant and
// latency-prioritized: chunks are never queued or retried.
package audio

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lingomeet/lingomeet/internal/core"
)

// ChunkInterval is the fixed chunk cadence.
const ChunkInterval = 500 * time.Millisecond

// Pipeline owns the capture stage. It is active only while both a local
// audio track and an open translation connection exist, and restarts on
// a stream identity change.
type Pipeline struct {
	transport core.TranslationTransport
	interval  time.Duration

	mu     sync.Mutex
	gen    uint64
	stream core.MediaStream
	cancel context.CancelFunc
	format string
}

func NewPipeline(transport core.TranslationTransport) *Pipeline {
	return &Pipeline{transport: transport, interval: ChunkInterval}
}

// Update reconciles the capture stage with the current inputs. Call it
// whenever the local stream or the translation connection changes; it is
// idempotent for identical inputs.
func (p *Pipeline) Update(ctx context.Context, stream core.MediaStream, translationOpen bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	active := translationOpen && stream != nil && stream.AudioTrack() != nil
	if active && p.stream != nil && p.stream.ID() == stream.ID() {
		return
	}

	p.stopLocked()
	if !active {
		return
	}

	track := stream.AudioTrack()
	p.gen++
	gen := p.gen
	p.stream = stream
	// Format selection happens once per capture-stage start, not per chunk.
	p.format = SelectFormat(track.SupportedFormats())

	captureCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	log.Info().Str("module", "audio").Str("stream", stream.ID()).Str("format", p.format).Msg("capture started")
	go p.capture(captureCtx, gen, track)
}

// Stop releases the capture stage. Any chunk completing afterwards is a
// no-op via the generation check.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Pipeline) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
		log.Info().Str("module", "audio").Msg("capture stopped")
	}
	// Bump the generation so in-flight sends from the old stage drop.
	p.gen++
	p.stream = nil
	p.format = ""
}

// Active reports whether a capture stage is running.
func (p *Pipeline) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Format returns the selected capture format, empty when inactive.
func (p *Pipeline) Format() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.format
}

func (p *Pipeline) capture(ctx context.Context, gen uint64, track core.AudioTrack) {
	frames := make(chan []byte, 64)
	go func() {
		defer close(frames)
		for {
			frame, err := track.ReadFrame()
			if err != nil {
				if ctx.Err() == nil {
					log.Debug().Err(err).Str("module", "audio").Msg("track read ended")
				}
				return
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var buf []byte
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			buf = append(buf, frame...)
		case <-ticker.C:
			if len(buf) == 0 {
				continue
			}
			chunk := make(core.Frame, len(buf))
			copy(chunk, buf)
			buf = buf[:0]
			p.send(gen, chunk)
		}
	}
}

// send forwards one chunk unless the capture stage has been superseded.
// Failed chunks are dropped, never resent.
func (p *Pipeline) send(gen uint64, chunk core.Frame) {
	p.mu.Lock()
	stale := p.gen != gen
	p.mu.Unlock()
	if stale {
		return
	}
	if err := p.transport.SendAudioChunk(chunk); err != nil {
		log.Debug().Err(err).Str("module", "audio").Int("bytes", len(chunk)).Msg("chunk dropped")
	}
}
