package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"mobiremote/internal/models"
	"mobiremote/internal/sequencer"
)

// recordingPublisher captures everything pushed outward.
type recordingPublisher struct {
	mu      sync.Mutex
	targets []int
	powers  []bool
	temps   []float64
	logs    []models.ApplianceEvent
	err     error
}

func (p *recordingPublisher) PublishTarget(_ context.Context, v int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targets = append(p.targets, v)
	return p.err
}

func (p *recordingPublisher) PublishPower(_ context.Context, on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.powers = append(p.powers, on)
	return p.err
}

func (p *recordingPublisher) PublishTemperature(_ context.Context, c float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.temps = append(p.temps, c)
	return p.err
}

func (p *recordingPublisher) PublishLog(_ context.Context, e models.ApplianceEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logs = append(p.logs, e)
	return p.err
}

func (p *recordingPublisher) logTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.logs))
	for i, e := range p.logs {
		out[i] = e.Type
	}
	return out
}

// fakeRecordRepo is an in-memory RecordRepo.
type fakeRecordRepo struct {
	stored  *models.Record
	loadErr error
	saveErr error
	saves   []models.Record
}

func (f *fakeRecordRepo) Load(context.Context) (models.Record, error) {
	if f.loadErr != nil {
		return models.Record{}, f.loadErr
	}
	if f.stored == nil {
		return models.Record{}, errors.New("fakeRecordRepo: nothing stored and no loadErr set")
	}
	return *f.stored, nil
}

func (f *fakeRecordRepo) Save(_ context.Context, r models.Record) error {
	f.saves = append(f.saves, r)
	if f.saveErr != nil {
		return f.saveErr
	}
	rec := r
	f.stored = &rec
	return nil
}

// fakeActuation records every plan it is asked to run.
type fakeActuation struct {
	runs []sequencer.Sequence
	err  error
}

func (f *fakeActuation) Run(seq sequencer.Sequence) error {
	f.runs = append(f.runs, seq)
	return f.err
}

func (f *fakeActuation) presses() int {
	n := 0
	for _, s := range f.runs {
		n += s.Len()
	}
	return n
}

// fakeTemps is a fixed TemperatureSource.
type fakeTemps struct {
	obs models.ObservedTemperature
}

func (f fakeTemps) Observed() models.ObservedTemperature { return f.obs }

// fakeSensor returns queued readings in order.
type fakeSensor struct {
	values []float64
	errs   []error
	i      int
}

func (f *fakeSensor) ReadCelsius(context.Context) (float64, error) {
	i := f.i
	f.i++
	if i < len(f.errs) && f.errs[i] != nil {
		return 0, f.errs[i]
	}
	if i < len(f.values) {
		return f.values[i], nil
	}
	return f.values[len(f.values)-1], nil
}

// countingRecorder counts measurements.
type countingRecorder struct {
	actuations   int
	failures     int
	reports      int
	sensorErrors int
}

func (r *countingRecorder) ObserveActuation(_ int, _ time.Duration, err error) {
	r.actuations++
	if err != nil {
		r.failures++
	}
}
func (r *countingRecorder) ObserveTemperatureReport(float64) { r.reports++ }
func (r *countingRecorder) ObserveSensorError()              { r.sensorErrors++ }
