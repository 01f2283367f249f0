package engine

import (
	"github.com/launchcore/engine/internal/pluginhost"
	"github.com/launchcore/engine/internal/scheduler"
	"github.com/launchcore/engine/internal/session"
	"github.com/launchcore/engine/internal/snapshot"
)

// Controller runs on the UI thread: it owns SessionModel, publishes a
// snapshot each time Publish is called after an edit, and applies the
// scheduler's reported
// transitions and recorded notes back into the model, closing the loop
// the ring buffers in internal/scheduler exist to support.
type Controller struct {
	model    *session.Model
	exchange *snapshot.Exchange
	host     *pluginhost.Host
	sched    *scheduler.Scheduler

	transitionsBuf []scheduler.Transition
	recordedBuf    []scheduler.RecordedNote
}

// NewController wraps model for publishing through exchange, resolving
// plugin bindings from host.
func NewController(model *session.Model, exchange *snapshot.Exchange, host *pluginhost.Host, sched *scheduler.Scheduler) *Controller {
	return &Controller{model: model, exchange: exchange, host: host, sched: sched}
}

// Model returns the owned session model for the UI to read and mutate
// directly; callers must call Publish after any mutation.
func (c *Controller) Model() *session.Model { return c.model }

// pluginRefs resolves the current plugin bindings for track t, used as
// the Exchange.Publish callback.
func (c *Controller) pluginRefs(t int) (snapshot.PluginRef, []snapshot.PluginRef) {
	instr := refOf(c.host.Instrument(t))
	track := c.model.Tracks[t]
	fx := make([]snapshot.PluginRef, len(track.FxSlots))
	for i := range track.FxSlots {
		fx[i] = refOf(c.host.Fx(t, i))
	}
	return instr, fx
}

func refOf(h *pluginhost.Handle) snapshot.PluginRef {
	if h == nil {
		return snapshot.PluginRef{}
	}
	return snapshot.PluginRef{Handle: h, Bound: !h.Broken()}
}

// Publish copies the current model and plugin bindings into the exchange
// for the audio thread to pick up on its next callback.
func (c *Controller) Publish() {
	c.exchange.Publish(c.model, c.pluginRefs)
}

// ApplySchedulerReports drains the scheduler's transition and
// recorded-note queues and applies them to the owned model, then
// publishes the result. Call this once per UI frame.
func (c *Controller) ApplySchedulerReports() {
	if c.sched == nil {
		return
	}

	c.transitionsBuf = c.sched.DrainTransitions(c.transitionsBuf[:0])
	for _, t := range c.transitionsBuf {
		if t.Track < 0 || t.Track >= len(c.model.Slots) {
			continue
		}
		if t.Scene < 0 || t.Scene >= len(c.model.Slots[t.Track]) {
			continue
		}
		c.model.Slots[t.Track][t.Scene].State = t.NewState
	}

	c.recordedBuf = c.sched.DrainRecordedNotes(c.recordedBuf[:0])
	for _, n := range c.recordedBuf {
		if n.Track < 0 || n.Track >= len(c.model.Slots) {
			continue
		}
		if n.Scene < 0 || n.Scene >= len(c.model.Slots[n.Track]) {
			continue
		}
		slot := &c.model.Slots[n.Track][n.Scene]
		slot.Clip.Notes = append(slot.Clip.Notes, n.Note)
	}

	if len(c.transitionsBuf) > 0 || len(c.recordedBuf) > 0 {
		c.Publish()
	}
}
