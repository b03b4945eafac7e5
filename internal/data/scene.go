package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SceneTimer arms one countdown on a node at build time. Handler names the
// Lua function invoked when the countdown reaches zero.
type SceneTimer struct {
	Handler   string `yaml:"handler"`
	Countdown int64  `yaml:"countdown"`
}

// SceneNode describes one scheduled entity in a scene file. TimeFactor is a
// pointer so that absence means "inherit from the owner" rather than zero.
type SceneNode struct {
	Name       string       `yaml:"name"`
	Priority   int32        `yaml:"priority"`
	TimeFactor *float64     `yaml:"time_factor"`
	OnFrame    string       `yaml:"on_frame"`
	OnAdded    string       `yaml:"on_added"`
	OnRemoved  string       `yaml:"on_removed"`
	OnEnter    string       `yaml:"on_enter"` // roots only
	OnExit     string       `yaml:"on_exit"`  // roots only
	Timers     []SceneTimer `yaml:"timers"`
	Children   []SceneNode  `yaml:"children"`
}

// SceneTable is a parsed scene file: one or more root trees plus a name
// index over every node in them.
type SceneTable struct {
	Roots []SceneNode

	byName map[string]*SceneNode
}

// LoadSceneTable loads a scene yaml file.
func LoadSceneTable(path string) (*SceneTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene table: %w", err)
	}
	t, err := ParseScene(raw)
	if err != nil {
		return nil, fmt.Errorf("parse scene table %s: %w", path, err)
	}
	return t, nil
}

// ParseScene parses scene yaml from memory and validates it.
func ParseScene(raw []byte) (*SceneTable, error) {
	var doc struct {
		Roots []SceneNode `yaml:"roots"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if len(doc.Roots) == 0 {
		return nil, fmt.Errorf("scene has no roots")
	}
	t := &SceneTable{
		Roots:  doc.Roots,
		byName: make(map[string]*SceneNode),
	}
	for i := range t.Roots {
		if err := t.index(&t.Roots[i]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *SceneTable) index(n *SceneNode) error {
	if n.Name == "" {
		return fmt.Errorf("scene node without a name")
	}
	if _, dup := t.byName[n.Name]; dup {
		return fmt.Errorf("duplicate scene node %q", n.Name)
	}
	if n.TimeFactor != nil && *n.TimeFactor < 0 {
		return fmt.Errorf("scene node %q: negative time_factor", n.Name)
	}
	for _, tm := range n.Timers {
		if tm.Handler == "" {
			return fmt.Errorf("scene node %q: timer without a handler", n.Name)
		}
		if tm.Countdown < 0 {
			return fmt.Errorf("scene node %q: negative countdown", n.Name)
		}
	}
	t.byName[n.Name] = n
	for i := range n.Children {
		if err := t.index(&n.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the node with the given name, or nil if none.
func (t *SceneTable) Get(name string) *SceneNode {
	return t.byName[name]
}

// Count returns the total number of nodes across all roots.
func (t *SceneTable) Count() int {
	return len(t.byName)
}
