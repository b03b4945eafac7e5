package scripting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronotree/engine/internal/core/sched"
	"github.com/chronotree/engine/internal/data"
	"github.com/chronotree/engine/internal/scripting"
)

const traceScript = `
	trace = ""
	function mark(tag, name, owner)
		if owner ~= nil and owner ~= "" then
			trace = trace .. tag .. ":" .. name .. "<" .. owner .. ";"
		else
			trace = trace .. tag .. ":" .. name .. ";"
		end
	end
	function on_enter(n) mark("enter", n) end
	function on_exit(n) mark("exit", n) end
	function on_frame(n) mark("frame", n) end
	function on_added(n, o) mark("added", n, o) end
	function on_removed(n, o) mark("removed", n, o) end
	function boom(n) mark("boom", n) end
`

const traceScene = `
roots:
  - name: main
    on_enter: on_enter
    on_exit: on_exit
    children:
      - name: fast
        priority: 10
        on_frame: on_frame
        on_added: on_added
        on_removed: on_removed
      - name: slow
        priority: 1
        time_factor: 0.5
        on_frame: on_frame
        timers:
          - handler: boom
            countdown: 1
`

func buildTraced(t *testing.T) (*sched.World, *scripting.Engine, *scripting.Scene) {
	t.Helper()
	eng := newEngine(t, map[string]string{"trace.lua": traceScript})
	tbl, err := data.ParseScene([]byte(traceScene))
	require.NoError(t, err)

	w := sched.NewWorld()
	scene, err := scripting.BuildScene(w, eng, tbl)
	require.NoError(t, err)
	return w, eng, scene
}

func trace(t *testing.T, eng *scripting.Engine) string {
	t.Helper()
	out := eng.GlobalString("trace")
	require.NoError(t, eng.DoString(`trace = ""`))
	return out
}

func TestBuildSceneWiresTree(t *testing.T) {
	w, eng, scene := buildTraced(t)

	require.Len(t, scene.Roots, 1)
	main := scene.ID("main")
	fast := scene.ID("fast")
	slow := scene.ID("slow")
	require.False(t, main.IsZero())
	assert.Equal(t, main, scene.Roots[0])
	assert.Equal(t, "fast", scene.Name(fast))
	assert.True(t, scene.ID("nonexistent").IsZero())

	assert.Equal(t, main, w.Owner(fast))
	assert.Equal(t, main, w.Owner(slow))

	p, err := w.FramePriority(fast)
	require.NoError(t, err)
	assert.Equal(t, 10, p)

	// Only fast declares on_added; it fires during the build.
	assert.Equal(t, "added:fast<main;", trace(t, eng))
}

func TestSceneFrameCascade(t *testing.T) {
	w, eng, scene := buildTraced(t)
	trace(t, eng)

	require.NoError(t, w.SetActive(scene.Roots[0], true))
	assert.Equal(t, "enter:main;", trace(t, eng))

	// Higher priority runs first; main itself has no frame handler.
	w.DriveFrame()
	assert.Equal(t, "frame:fast;frame:slow;", trace(t, eng))

	// slow runs at half rate, so its countdown-1 timer comes due on the
	// second frame, during the clock advance that precedes the cascade.
	w.DriveFrame()
	assert.Equal(t, "boom:slow;frame:fast;frame:slow;", trace(t, eng))

	require.NoError(t, w.SetActive(scene.Roots[0], false))
	assert.Equal(t, "exit:main;", trace(t, eng))
}

func TestSceneRemovalHandler(t *testing.T) {
	w, eng, scene := buildTraced(t)
	trace(t, eng)

	require.True(t, w.Detach(scene.ID("fast"), scene.ID("main")))
	assert.Equal(t, "removed:fast<main;", trace(t, eng))
}

func TestBuildSceneMultipleRoots(t *testing.T) {
	eng := newEngine(t, nil)
	tbl, err := data.ParseScene([]byte("roots:\n  - name: a\n  - name: b\n"))
	require.NoError(t, err)

	w := sched.NewWorld()
	scene, err := scripting.BuildScene(w, eng, tbl)
	require.NoError(t, err)
	require.Len(t, scene.Roots, 2)

	// Roots are spawned unowned and stay that way.
	assert.True(t, w.Owner(scene.Roots[0]).IsZero())
	assert.True(t, w.Owner(scene.Roots[1]).IsZero())
}
