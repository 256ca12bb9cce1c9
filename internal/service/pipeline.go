package service

import (
	"time"

	"timeclock/internal/models"
	"timeclock/internal/shift"
)

// Pipeline rebuilds shifts from stored clock events. Nothing derived is
// cached: every call recomputes from the rows it is given.
type Pipeline struct {
	opts shift.Options
}

func NewPipeline(opts shift.Options) *Pipeline {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{opts: opts}
}

func (p *Pipeline) Now() time.Time {
	return p.opts.Now().In(p.opts.Location)
}

func (p *Pipeline) Location() *time.Location {
	return p.opts.Location
}

func (p *Pipeline) Policy() shift.Policy {
	return p.opts.Policy
}

func (p *Pipeline) Options() shift.Options {
	return p.opts
}

// Run normalizes and reconstructs events with open shifts measured at ref.
func (p *Pipeline) Run(events []*models.ClockEvent, ref time.Time) (map[string][]shift.Shift, shift.Diagnostics) {
	opts := p.opts.At(ref)
	normalized, d1 := shift.Normalize(models.ToRawEvents(events), opts)
	shifts, d2 := shift.Reconstruct(normalized, opts)
	return shifts, d1.Add(d2)
}

// RunRaw is Run for events that never touched the database.
func (p *Pipeline) RunRaw(raw []shift.RawEvent, ref time.Time) (map[string][]shift.Shift, shift.Diagnostics) {
	opts := p.opts.At(ref)
	normalized, d1 := shift.Normalize(raw, opts)
	shifts, d2 := shift.Reconstruct(normalized, opts)
	return shifts, d1.Add(d2)
}
