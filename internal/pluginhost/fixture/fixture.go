// Package fixture is a pure-Go pluginhost.ABI implementation used only by
// tests and benchmarks: a single-voice sine synth and a gain stage, built
// on the pkg/dsp oscillator/envelope/gain primitives, with no
// dynamic-library loading so the engine's scenario tests can run without a
// real plugin binary.
package fixture

import (
	"fmt"
	"math"

	"github.com/launchcore/engine/internal/midi"
	"github.com/launchcore/engine/internal/pluginhost"
	"github.com/launchcore/engine/pkg/dsp/envelope"
	"github.com/launchcore/engine/pkg/dsp/gain"
	"github.com/launchcore/engine/pkg/dsp/oscillator"
)

// LevelDb is the attenuation a fixture FX instance applies to its input.
// The synth voice does not use it: its output is the unscaled sine times
// the envelope level, which approaches 1.0.
const LevelDb = -6.0

// ABI is a fixture implementation of pluginhost.ABI. Every instance it
// creates is either a synth (one sine voice driven by NoteOn/NoteOff) or
// a gain stage (attenuates input by LevelDb), selected by the pluginID
// passed to Create.
type ABI struct {
	initialized bool
}

// New returns a fixture ABI. Init loads no library; it only marks the ABI
// initialized, and Create fails until it has been called.
func New() *ABI { return &ABI{} }

func (a *ABI) Init(path string) error {
	a.initialized = true
	return nil
}

type instance struct {
	isSynth bool
	osc     *oscillator.Oscillator
	env     *envelope.AR
	gainLin float32
	sounding int // count of held keys; voice stays active while > 0
}

func (a *ABI) Create(host pluginhost.HostCallbacks, pluginID string) (pluginhost.Instance, error) {
	if !a.initialized {
		return nil, fmt.Errorf("fixture: Create called before Init")
	}
	switch pluginID {
	case "fixture.synth":
		return &instance{isSynth: true}, nil
	case "fixture.gain":
		return &instance{isSynth: false, gainLin: gain.DbToLinear32(LevelDb)}, nil
	default:
		return nil, pluginhost.ErrPluginUnavailable
	}
}

func (a *ABI) Activate(inst pluginhost.Instance, sampleRate float64, minBlock, maxBlock int) error {
	ins, ok := inst.(*instance)
	if !ok {
		return fmt.Errorf("fixture: Activate: wrong instance type")
	}
	if ins.isSynth {
		ins.osc = oscillator.New(sampleRate)
		ins.osc.SetFrequency(440)
		ins.env = envelope.NewAR(sampleRate)
		ins.env.SetAttack(0.002)
		ins.env.SetRelease(0.05)
	}
	return nil
}

func (a *ABI) StartProcessing(inst pluginhost.Instance) error { return nil }

func (a *ABI) Process(inst pluginhost.Instance, in, out [][]float32, inEvents []midi.Event, outEvents *[]midi.Event, frames int, steadyTime int64) pluginhost.ProcessResult {
	ins, ok := inst.(*instance)
	if !ok {
		return pluginhost.ProcessFailed
	}

	if ins.isSynth {
		return ins.processSynth(out, inEvents, frames)
	}
	return ins.processGain(in, out, frames)
}

func (i *instance) processSynth(out [][]float32, events []midi.Event, frames int) pluginhost.ProcessResult {
	if len(out) < 2 {
		return pluginhost.ProcessFailed
	}
	l, r := out[0], out[1]

	cursor := 0
	for _, e := range events {
		i.renderRange(l, r, cursor, int(e.FrameOffset))
		switch p := e.Payload.(type) {
		case midi.NoteOn:
			i.sounding++
			i.osc.SetFrequency(keyToFrequency(p.Key))
			i.env.Trigger()
		case midi.NoteOff:
			if i.sounding > 0 {
				i.sounding--
			}
			if i.sounding == 0 {
				i.env.Release()
			}
		}
		cursor = int(e.FrameOffset)
	}
	i.renderRange(l, r, cursor, frames)
	return pluginhost.ProcessOK
}

// renderRange fills [from, to) with the oscillator scaled by the AR
// envelope; once the envelope decays to silence after a release it still
// advances so the next NoteOn retriggers cleanly.
func (i *instance) renderRange(l, r []float32, from, to int) {
	for n := from; n < to && n < len(l); n++ {
		sample := i.osc.Sine() * i.env.Next()
		l[n], r[n] = sample, sample
	}
}

func keyToFrequency(key uint8) float64 {
	return 440 * math.Pow(2, (float64(key)-69)/12)
}

func (i *instance) processGain(in, out [][]float32, frames int) pluginhost.ProcessResult {
	if len(in) < 2 || len(out) < 2 {
		return pluginhost.ProcessFailed
	}
	gain.ApplyBufferTo(in[0][:frames], i.gainLin, out[0][:frames])
	gain.ApplyBufferTo(in[1][:frames], i.gainLin, out[1][:frames])
	return pluginhost.ProcessOK
}

func (a *ABI) StopProcessing(inst pluginhost.Instance) error { return nil }

func (a *ABI) Deactivate(inst pluginhost.Instance) error { return nil }

func (a *ABI) Destroy(inst pluginhost.Instance) error { return nil }

func (a *ABI) GetExtension(inst pluginhost.Instance, id string) (any, bool) { return nil, false }
