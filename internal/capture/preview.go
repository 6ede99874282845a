package capture

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Preview holds the most recent camera frame as JPEG for any number of
// readers. The detection pipeline is the only camera reader; viewers wait
// on the preview instead of opening the device themselves.
type Preview struct {
	mu      sync.Mutex
	jpeg    []byte
	seq     uint64
	updated chan struct{}
}

// NewPreview returns an empty preview.
func NewPreview() *Preview {
	return &Preview{updated: make(chan struct{})}
}

// Publish encodes frame as JPEG and makes it the latest frame.
func (p *Preview) Publish(frame *gocv.Mat) error {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	p.PublishJPEG(data)
	return nil
}

// PublishJPEG makes data the latest frame. data must not be modified afterwards.
func (p *Preview) PublishJPEG(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.jpeg = data
	p.seq++
	close(p.updated)
	p.updated = make(chan struct{})
}

// Latest returns the latest frame and its sequence number. The sequence is
// zero while nothing has been published.
func (p *Preview) Latest() ([]byte, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jpeg, p.seq
}

// Next blocks until a frame newer than after is available or ctx is done.
func (p *Preview) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		p.mu.Lock()
		if p.seq > after {
			data, seq := p.jpeg, p.seq
			p.mu.Unlock()
			return data, seq, nil
		}
		updated := p.updated
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, after, ctx.Err()
		case <-updated:
		}
	}
}
