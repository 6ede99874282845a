package plugin

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ayusman/posehold/internal/log"
	"github.com/ayusman/posehold/internal/store"
)

// Bindings lists the stored hook bindings for an event.
type Bindings interface {
	ListEnabled(event string) ([]*store.Hook, error)
}

// target is one plugin run for an event.
type target struct {
	plugin *Plugin
	config json.RawMessage
}

// Dispatcher fans session events out to hooks. Stored bindings for an event
// take precedence; when none exist, every plugin whose manifest subscribes
// to the event runs with an empty config.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	bindings Bindings

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher returns a dispatcher. bindings may be nil.
func NewDispatcher(manager *Manager, executor *Executor, bindings Bindings) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		bindings: bindings,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (d *Dispatcher) targets(event string) []target {
	if d.bindings != nil {
		hooks, err := d.bindings.ListEnabled(event)
		if err != nil {
			log.Warn("failed to load hook bindings", "event", event, "err", err)
		}
		if len(hooks) > 0 {
			out := make([]target, 0, len(hooks))
			for _, h := range hooks {
				p, err := d.manager.Get(h.PluginName)
				if err != nil {
					log.Warn("hook bound to missing plugin", "hook", h.ID, "plugin", h.PluginName)
					continue
				}
				out = append(out, target{plugin: p, config: h.Config})
			}
			return out
		}
	}

	plugins := d.manager.ForEvent(event)
	out := make([]target, len(plugins))
	for i, p := range plugins {
		out[i] = target{plugin: p}
	}
	return out
}

// Dispatch runs every hook for req.Event in the background and returns at
// once. Bindings are looked up off the caller's goroutine. Failures are logged.
func (d *Dispatcher) Dispatch(req Request) {
	if req.Time.IsZero() {
		req.Time = time.Now()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for _, t := range d.targets(req.Event) {
			r := req
			r.Config = t.config

			d.wg.Add(1)
			go func(p *Plugin) {
				defer d.wg.Done()
				d.run(p, &r)
			}(t.plugin)
		}
	}()
}

func (d *Dispatcher) run(p *Plugin, req *Request) {
	resp, err := d.executor.Execute(d.ctx, p, req)
	if err != nil {
		log.Warn("hook failed", "plugin", p.Manifest.Name, "event", req.Event, "err", err)
		return
	}
	if !resp.Success {
		log.Warn("hook reported failure", "plugin", p.Manifest.Name, "event", req.Event, "error", resp.Error)
		return
	}
	log.Debug("hook ran", "plugin", p.Manifest.Name, "event", req.Event)
}

// Wait blocks until every dispatched hook has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close cancels running hooks and waits for them to exit.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}
