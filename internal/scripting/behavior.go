package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/chronotree/engine/internal/core/sched"
)

// ScriptBehavior routes a node's scheduling callbacks to named Lua
// handlers. Empty handler names are skipped without touching the VM.
//
// Handlers are called as handler(node_name, ...): frame and root handlers
// get just the node name, ownership hooks also get the other side's name
// (empty when the owner is unknown to the scene).
type ScriptBehavior struct {
	eng   *Engine
	scene *Scene
	name  string

	onFrame   string
	onAdded   string
	onRemoved string
	onEnter   string
	onExit    string
}

func (b *ScriptBehavior) FrameActions(w *sched.World, self sched.NodeID) {
	if b.onFrame == "" {
		return
	}
	b.eng.invoke(b.onFrame, lua.LString(b.name))
}

func (b *ScriptBehavior) AddedActions(w *sched.World, self, owner sched.NodeID) {
	if b.onAdded == "" {
		return
	}
	b.eng.invoke(b.onAdded, lua.LString(b.name), lua.LString(b.scene.Name(owner)))
}

func (b *ScriptBehavior) RemovedActions(w *sched.World, self, owner sched.NodeID) {
	if b.onRemoved == "" {
		return
	}
	b.eng.invoke(b.onRemoved, lua.LString(b.name), lua.LString(b.scene.Name(owner)))
}

func (b *ScriptBehavior) EnterActions(w *sched.World, self sched.NodeID) {
	if b.onEnter == "" {
		return
	}
	b.eng.invoke(b.onEnter, lua.LString(b.name))
}

func (b *ScriptBehavior) ExitActions(w *sched.World, self sched.NodeID) {
	if b.onExit == "" {
		return
	}
	b.eng.invoke(b.onExit, lua.LString(b.name))
}

// TimerFunc builds a countdown callback that invokes handler(node_name).
func (e *Engine) TimerFunc(handler, nodeName string) sched.TimerFunc {
	return func(w *sched.World, self sched.NodeID) {
		e.invoke(handler, lua.LString(nodeName))
	}
}
