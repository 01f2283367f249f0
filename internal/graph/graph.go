// Package graph implements the typed node DAG from spec §4.2: node arena,
// port wiring resolved to pointers at build time, a cached topological
// order, and an allocation-free per-block Process pass.
package graph

import (
	"errors"

	"github.com/launchcore/engine/internal/midi"
	"github.com/launchcore/engine/internal/pluginhost"
	"github.com/launchcore/engine/internal/snapshot"
)

// ErrCycle is returned by Build if the requested topology is not a DAG.
var ErrCycle = errors.New("graph: construction would create a cycle")

// Graph holds the node arena, the edge list kept for introspection, and
// the cached topological order. Edges are resolved to pointers on each
// node at build time, so Process performs no map lookups.
type Graph struct {
	nodes []Node
	edges []Edge
	topo  []NodeID

	maxBlock       int
	eventCapacity  int

	instrumentSrc map[int]NodeID
	fxSrc         map[[2]int]NodeID
	synthOf       map[int]NodeID
	fxOf          map[[2]int]NodeID
	gainOf        map[int]NodeID
	mixerID       NodeID
	masterID      NodeID

	trackCount int
}

// Build constructs the fixed per-track topology from spec §4.2: for each
// track, NoteSource[instrument] -> Synth -> (NoteSource[fx] + Fx)* ->
// Gain; all Gain outputs feed one Mixer, which feeds Master. It fails
// with ErrCycle if the resulting graph is not a DAG (it always is for
// this fixed shape; the check exists because Build is the one place spec
// §4.2 requires it).
func Build(trackCount, maxFxSlots, maxBlock, eventCapacity int) (*Graph, error) {
	g := &Graph{
		maxBlock:      maxBlock,
		eventCapacity: eventCapacity,
		instrumentSrc: make(map[int]NodeID, trackCount),
		fxSrc:         make(map[[2]int]NodeID, trackCount*maxFxSlots),
		synthOf:       make(map[int]NodeID, trackCount),
		fxOf:          make(map[[2]int]NodeID, trackCount*maxFxSlots),
		gainOf:        make(map[int]NodeID, trackCount),
		trackCount:    trackCount,
	}

	for t := 0; t < trackCount; t++ {
		instrSrc := g.addNode(KindNoteSource, t, -1, true)
		synth := g.addNode(KindSynth, t, -1, false)
		g.connectEvent(instrSrc, synth)
		g.instrumentSrc[t] = instrSrc
		g.synthOf[t] = synth

		prevAudio := synth
		for slot := 0; slot < maxFxSlots; slot++ {
			fxSrc := g.addNode(KindNoteSource, t, slot, false)
			fx := g.addNode(KindFx, t, slot, false)
			g.connectEvent(fxSrc, fx)
			g.connectAudio(prevAudio, fx)
			g.fxSrc[[2]int{t, slot}] = fxSrc
			g.fxOf[[2]int{t, slot}] = fx
			prevAudio = fx
		}

		gain := g.addNode(KindGain, t, -1, false)
		g.connectAudio(prevAudio, gain)
		g.gainOf[t] = gain
	}

	mixer := g.addNode(KindMixer, -1, -1, false)
	for t := 0; t < trackCount; t++ {
		g.connectAudio(g.gainOf[t], mixer)
	}
	master := g.addNode(KindMaster, -1, -1, false)
	g.connectAudio(mixer, master)
	g.mixerID = mixer
	g.masterID = master

	if err := g.computeTopoOrder(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) addNode(kind Kind, track, fxSlot int, isInstrument bool) NodeID {
	id := NodeID(len(g.nodes))
	n := Node{ID: id, Kind: kind, Track: track, FxSlot: fxSlot, IsInstrument: isInstrument}
	switch kind {
	case KindNoteSource:
		n.EventOut = NewEventPort(g.eventCapacity)
	default:
		n.AudioOut = NewAudioPort(g.maxBlock)
	}
	g.nodes = append(g.nodes, n)
	return id
}

func (g *Graph) connectAudio(src, dst NodeID) {
	g.edges = append(g.edges, Edge{SrcNode: src, DstNode: dst, Kind: PortAudio})
	g.nodes[dst].AudioIn = append(g.nodes[dst].AudioIn, g.nodes[src].AudioOut)
}

func (g *Graph) connectEvent(src, dst NodeID) {
	g.edges = append(g.edges, Edge{SrcNode: src, DstNode: dst, Kind: PortEvent})
	g.nodes[dst].EventIn = g.nodes[src].EventOut
}

// computeTopoOrder runs Kahn's algorithm over Edges and caches the result
// in g.topo, failing with ErrCycle if not every node could be ordered.
func (g *Graph) computeTopoOrder() error {
	inDegree := make([]int, len(g.nodes))
	adj := make([][]NodeID, len(g.nodes))
	for _, e := range g.edges {
		adj[e.SrcNode] = append(adj[e.SrcNode], e.DstNode)
		inDegree[e.DstNode]++
	}

	queue := make([]NodeID, 0, len(g.nodes))
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, NodeID(id))
		}
	}

	order := make([]NodeID, 0, len(g.nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, next := range adj[n] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(g.nodes) {
		return ErrCycle
	}
	g.topo = order
	return nil
}

// TopoOrder returns the cached processing order.
func (g *Graph) TopoOrder() []NodeID { return g.topo }

// Node returns a pointer into the arena for introspection/tests.
func (g *Graph) Node(id NodeID) *Node { return &g.nodes[id] }

// TrackCount returns the number of tracks this graph was built for.
func (g *Graph) TrackCount() int { return g.trackCount }

// InstrumentEventPort returns the event output port the scheduler
// populates with this track's instrument note events for the block.
func (g *Graph) InstrumentEventPort(track int) *EventPort {
	return g.nodes[g.instrumentSrc[track]].EventOut
}

// FxEventPort returns the event output port the scheduler populates with
// automation events targeting one FX slot for the block.
func (g *Graph) FxEventPort(track, slot int) *EventPort {
	return g.nodes[g.fxSrc[[2]int{track, slot}]].EventOut
}

// MasterOutput returns the final mixed stereo buffer for the block.
func (g *Graph) MasterOutput() *AudioPort {
	return g.nodes[g.masterID].AudioOut
}

// ClearEventPorts empties every NoteSource's output port ahead of the
// scheduler repopulating them for the next block.
func (g *Graph) ClearEventPorts() {
	for i := range g.nodes {
		if g.nodes[i].EventOut != nil {
			g.nodes[i].EventOut.Clear()
		}
	}
}

// Process runs one chunk through the graph in topological order, per
// spec §4.2's process algorithm. snap is the StateSnapshot acquired for
// this callback; frames <= maxBlock; steadyTime is the sample count since
// engine start.
func (g *Graph) Process(snap *snapshot.Snapshot, frames int, steadyTime int64) {
	anySolo := false
	for t := 0; t < g.trackCount && t < len(snap.Track); t++ {
		if snap.Track[t].Solo {
			anySolo = true
			break
		}
	}

	for _, id := range g.topo {
		n := &g.nodes[id]
		switch n.Kind {
		case KindNoteSource:
			// populated by the scheduler before Process is called.
		case KindSynth:
			processPlugin(n, snap.Track[n.Track].Instrument, nil, frames, steadyTime)
		case KindFx:
			processPlugin(n, snap.Track[n.Track].FxSlots[n.FxSlot], n.AudioIn[0], frames, steadyTime)
		case KindGain:
			processGain(n, snap.Track[n.Track], frames, anySolo)
		case KindMixer:
			processMixer(n, frames)
		case KindMaster:
			l, r := n.AudioIn[0].Frames(frames)
			outl, outr := n.AudioOut.Frames(frames)
			copy(outl, l)
			copy(outr, r)
		}
	}
}

func processPlugin(n *Node, ref snapshot.PluginRef, audioIn *AudioPort, frames int, steadyTime int64) {
	n.AudioOut.Clear(frames)

	if !ref.Bound {
		// no plugin assigned: an empty FX slot passes its input through,
		// an empty instrument slot produces silence
		if audioIn != nil {
			l, r := audioIn.Frames(frames)
			outl, outr := n.AudioOut.Frames(frames)
			copy(outl, l)
			copy(outr, r)
		}
		return
	}
	handle, ok := ref.Handle.(*pluginhost.Handle)
	if !ok || handle == nil || handle.Broken() {
		return
	}
	if err := handle.EnsureStarted(); err != nil {
		return
	}

	var inBufs [][]float32
	if audioIn != nil {
		l, r := audioIn.Frames(frames)
		inBufs = [][]float32{l, r}
	}
	outl, outr := n.AudioOut.Frames(frames)
	outBufs := [][]float32{outl, outr}

	var inEvents []midi.Event
	if n.EventIn != nil {
		inEvents = n.EventIn.Events()
	}
	var outEvents []midi.Event

	result := handle.ABI().Process(handle.Instance(), inBufs, outBufs, inEvents, &outEvents, frames, steadyTime)
	if result != pluginhost.ProcessOK {
		n.AudioOut.Clear(frames) // emit silence this block; plugin stays loaded for next block
		return
	}
	if n.EventOut != nil {
		for _, e := range outEvents {
			n.EventOut.Append(e)
		}
	}
}

func processGain(n *Node, tv snapshot.TrackView, frames int, anySolo bool) {
	in := n.AudioIn[0]
	l, r := in.Frames(frames)
	outl, outr := n.AudioOut.Frames(frames)

	if tv.Mute || (anySolo && !tv.Solo) {
		for i := range outl {
			outl[i] = 0
			outr[i] = 0
		}
		return
	}

	vol := float32(tv.Volume)
	for i := range outl {
		outl[i] = l[i] * vol
		outr[i] = r[i] * vol
	}
}

func processMixer(n *Node, frames int) {
	n.AudioOut.Clear(frames)
	for _, in := range n.AudioIn {
		n.AudioOut.AddFrom(in, frames)
	}
}
