// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"sync"
	"time"

	"specviz/internal/log"
	"specviz/internal/spectro"
)

// DefaultInterval paces publishing at roughly display refresh rate.
const DefaultInterval = 16 * time.Millisecond

/*
Packet layout (BigEndian):

	| Field      | Type      | Bytes |
	|------------|-----------|-------|
	| Sequence   | uint64    | 8     |
	| Timestamp  | int64     | 8     | nanoseconds since epoch
	| Level count| uint16    | 2     |
	| Levels     | []float32 | N * 4 | dB per display bucket
*/

// Publisher samples the frame channel on a fixed interval and sends each
// new frame as one binary packet. Frames already sent are skipped, so an
// idle pipeline produces no traffic.
type Publisher struct {
	sender   *Sender
	frames   *spectro.Channel
	interval time.Duration

	mu       sync.Mutex
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	lastSeq uint64
	packet  *bytes.Buffer
}

// NewPublisher pairs a sender with the frame channel. A non-positive
// interval falls back to DefaultInterval.
func NewPublisher(interval time.Duration, sender *Sender, frames *spectro.Channel) *Publisher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Publisher{
		sender:   sender,
		frames:   frames,
		interval: interval,
		packet:   new(bytes.Buffer),
	}
}

// Start launches the publishing goroutine. Calling Start on a running
// publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.done = make(chan struct{})
	p.stopOnce = sync.Once{}
	ticker, done := p.ticker, p.done
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Infof("transport: udp publisher started (every %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publishLatest()
			case <-done:
				return
			}
		}
	}()
}

// Stop terminates the publishing goroutine and waits for it. Safe to call
// repeatedly.
func (p *Publisher) Stop() {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return
	}
	p.stopOnce.Do(func() {
		close(p.done)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	log.Infof("transport: udp publisher stopped")
}

func (p *Publisher) publishLatest() {
	frame, ok := p.frames.Latest()
	if !ok || frame.Seq == p.lastSeq {
		return
	}
	p.lastSeq = frame.Seq

	p.packet.Reset()
	binary.Write(p.packet, binary.BigEndian, frame.Seq)
	binary.Write(p.packet, binary.BigEndian, frame.Timestamp.UnixNano())
	binary.Write(p.packet, binary.BigEndian, uint16(len(frame.Levels)))
	for _, level := range frame.Levels {
		binary.Write(p.packet, binary.BigEndian, float32(level))
	}

	if err := p.sender.Send(p.packet.Bytes()); err != nil {
		log.Debugf("transport: udp send failed: %v", err)
	}
}
