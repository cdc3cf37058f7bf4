package main

import (
	"context"
	"sync"

	"github.com/tasklight/tasklight/internal/logsource"
	"github.com/tasklight/tasklight/internal/model"
)

// sourceMux fans every active log source into one envelope stream.
// The stream closes once all sources have ended, or on Stop.
type sourceMux struct {
	ctx     context.Context
	cancel  context.CancelFunc
	sources []logsource.LogSource
	out     chan model.IngestEnvelope

	pumps sync.WaitGroup
	start sync.Once
	stop  sync.Once
	seal  sync.Once
}

func newSourceMux(parent context.Context, sources []logsource.LogSource, buffer int) *sourceMux {
	if buffer <= 0 {
		buffer = defaultMuxBufferSize
	}
	ctx, cancel := context.WithCancel(parent)
	return &sourceMux{
		ctx:     ctx,
		cancel:  cancel,
		sources: sources,
		out:     make(chan model.IngestEnvelope, buffer),
	}
}

// Lines is the merged stream. Blank lines never appear on it.
func (m *sourceMux) Lines() <-chan model.IngestEnvelope { return m.out }

func (m *sourceMux) HasSources() bool { return len(m.sources) > 0 }

func (m *sourceMux) Start() {
	m.start.Do(func() {
		m.pumps.Add(len(m.sources))
		for _, src := range m.sources {
			go m.pump(src)
		}
		go func() {
			m.pumps.Wait()
			m.sealOutput()
		}()
	})
}

func (m *sourceMux) Stop() {
	m.stop.Do(func() {
		m.cancel()
		for _, src := range m.sources {
			src.Stop()
		}
		m.pumps.Wait()
		m.sealOutput()
	})
}

func (m *sourceMux) pump(src logsource.LogSource) {
	defer m.pumps.Done()

	in := src.Lines()
	for {
		select {
		case env, ok := <-in:
			if !ok {
				return
			}
			if env.Line == "" {
				continue
			}
			select {
			case m.out <- env:
			case <-m.ctx.Done():
				return
			}
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *sourceMux) sealOutput() {
	m.seal.Do(func() { close(m.out) })
}
