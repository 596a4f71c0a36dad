package merge

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/kestrelmods/kestrel/pkg/format/aamp"
	"github.com/kestrelmods/kestrel/pkg/resource"
)

// AINode is a single node of the AI-program forest: either an AI node or
// an action leaf (distinguished by IsAction), keyed by its own full name
// rather than the on-disk integer index. References to children, shared
// behaviors, and demo actions are by full name as well, so the tree is
// purely structural in memory: two programs can be diffed and merged
// without any notion of index renumbering until they are re-flattened for
// serialisation.
type AINode struct {
	FullName    string
	IsAction    bool
	Params      aamp.ParameterObject
	Children    []string
	Behaviors   []string
	DemoActions []string
}

func (n AINode) equal(other AINode) bool {
	if n.FullName != other.FullName || n.IsAction != other.IsAction {
		return false
	}
	if !n.Params.Equal(other.Params) {
		return false
	}
	return equalStringSlice(n.Children, other.Children) &&
		equalStringSlice(n.Behaviors, other.Behaviors) &&
		equalStringSlice(n.DemoActions, other.DemoActions)
}

func equalStringSlice(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AIProgram is the actor AI program composite kind (KindAIProgram): a
// forest of AINodes reachable from an ordered set of root full names.
type AIProgram struct {
	Roots []string
	Nodes map[string]AINode
}

func init() {
	resource.RegisterKind(resource.KindAIProgram, func(data []byte, order binary.ByteOrder) (resource.Mergeable, error) {
		pio, err := aamp.FromBinaryOrder(data, order)
		if err != nil {
			return nil, err
		}
		return parseAIProgram(pio.ParameterList)
	})
}

// parseAIProgram rebuilds the in-memory forest from the flattened on-disk
// form: "AI"/"Action" lists of indexed nodes, with a "Root" list giving
// the entry-point indices. Index-valued reference fields are rewritten to
// full-name keys using each node's own "ClassName"+index-derived name as
// its full name, mirroring the by-reference-not-by-index in-memory model
// the design calls for.
func parseAIProgram(root *aamp.ParameterList) (AIProgram, error) {
	aiList, ok := root.List("AI")
	if !ok {
		return AIProgram{}, fmt.Errorf("aiprogram: missing AI list")
	}
	actionList, ok := root.List("Action")
	if !ok {
		actionList = aamp.NewParameterList()
	}

	names := make(map[uint32]string)
	nodes := make(map[string]AINode)

	collect := func(list *aamp.ParameterList, isAction bool) {
		list.Objects.Range(func(idx uint32, obj aamp.ParameterObject) bool {
			fullName := fmt.Sprintf("%s#%d", nodeClassName(obj), idx)
			names[idx] = fullName
			nodes[fullName] = AINode{FullName: fullName, IsAction: isAction, Params: obj}
			return true
		})
	}
	collect(aiList, false)
	collect(actionList, true)

	resolveRefs := func(obj aamp.ParameterObject, refKeys []string) []string {
		var out []string
		for _, rk := range refKeys {
			hash := aamp.HashName(rk)
			if p, ok := obj.Get(hash); ok && p.Type == aamp.TypeInt && p.Int >= 0 {
				if name, ok := names[uint32(p.Int)]; ok {
					out = append(out, name)
				}
			}
		}
		return out
	}

	for name, node := range nodes {
		node.Children = resolveRefs(node.Params, []string{"ChildIdx"})
		node.Behaviors = resolveRefs(node.Params, []string{"BehaviorIdx"})
		node.DemoActions = resolveRefs(node.Params, []string{"DemoActionIdx"})
		nodes[name] = node
	}

	var roots []string
	if rootList, ok := root.Object("Root"); ok {
		rootList.Range(func(_ uint32, p aamp.Parameter) bool {
			if p.Type == aamp.TypeInt {
				if name, ok := names[uint32(p.Int)]; ok {
					roots = append(roots, name)
				}
			}
			return true
		})
	}

	return AIProgram{Roots: roots, Nodes: nodes}, nil
}

func nodeClassName(obj aamp.ParameterObject) string {
	if p, ok := obj.Get(aamp.HashName("ClassName")); ok && p.Type == aamp.TypeString {
		return p.Str
	}
	return "Unknown"
}

// Kind implements resource.Mergeable.
func (p AIProgram) Kind() resource.Kind { return resource.KindAIProgram }

// ToBinary re-flattens the forest by a post-order walk from Roots,
// deduplicating identical sub-trees by their full-name string (a node
// visited twice via two different parents is emitted once and referenced
// by the same recomputed index both times), and rewrites reference fields
// from full names back to the freshly assigned indices.
func (p AIProgram) ToBinary() []byte {
	return p.ToBinaryOrder(binary.LittleEndian)
}

// ToBinaryOrder implements resource.Mergeable.
func (p AIProgram) ToBinaryOrder(byteOrder binary.ByteOrder) []byte {
	order, index := flattenAIProgram(p)

	aiList := aamp.NewParameterList()
	actionList := aamp.NewParameterList()
	for _, name := range order {
		node := p.Nodes[name]
		obj := node.Params.Clone()
		setRefs(&obj, "ChildIdx", node.Children, index)
		setRefs(&obj, "BehaviorIdx", node.Behaviors, index)
		setRefs(&obj, "DemoActionIdx", node.DemoActions, index)
		idx := uint32(index[name])
		if node.IsAction {
			actionList.Objects.Set(idx, obj)
		} else {
			aiList.Objects.Set(idx, obj)
		}
	}

	root := aamp.NewParameterList()
	root.SetList("AI", aiList)
	root.SetList("Action", actionList)
	rootObj := aamp.NewParameterObject()
	for i, name := range p.Roots {
		rootObj.Set(uint32(i), aamp.Parameter{Type: aamp.TypeInt, Int: int32(index[name])})
	}
	root.SetObject("Root", rootObj)

	return aamp.ParameterIO{ParameterList: root}.ToBinaryOrder(byteOrder)
}

func setRefs(obj *aamp.ParameterObject, key string, refs []string, index map[string]int) {
	if len(refs) == 0 {
		return
	}
	if idx, ok := index[refs[0]]; ok {
		obj.Set(aamp.HashName(key), aamp.Parameter{Type: aamp.TypeInt, Int: int32(idx)})
	}
}

// flattenAIProgram performs the deterministic post-order walk described
// by the design notes: visiting children before the node itself,
// deduplicating by full name, and falling back to a sorted walk over any
// nodes unreachable from Roots so that every node in the forest is still
// emitted (mods may add orphaned nodes pending a future root wiring).
func flattenAIProgram(p AIProgram) ([]string, map[string]int) {
	visited := make(map[string]bool)
	var order []string

	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		node, ok := p.Nodes[name]
		if !ok {
			return
		}
		visited[name] = true
		for _, c := range node.Children {
			visit(c)
		}
		for _, b := range node.Behaviors {
			visit(b)
		}
		for _, d := range node.DemoActions {
			visit(d)
		}
		order = append(order, name)
	}

	for _, root := range p.Roots {
		visit(root)
	}

	remaining := make([]string, 0)
	for name := range p.Nodes {
		if !visited[name] {
			remaining = append(remaining, name)
		}
	}
	sort.Strings(remaining)
	for _, name := range remaining {
		visit(name)
	}

	index := make(map[string]int, len(order))
	for i, name := range order {
		index[name] = i
	}
	return order, index
}

// Diff implements resource.Mergeable. Node-level diffing follows the
// parameter-object deletion-absent rule: a node is emitted wholesale if
// new or structurally different, and nodes present only in base are
// dropped from the patch silently.
func (p AIProgram) Diff(base resource.Mergeable) (resource.Mergeable, error) {
	baseProg, ok := base.(AIProgram)
	if !ok {
		return nil, fmt.Errorf("merge: AIProgram.Diff: mismatched kind %T", base)
	}
	patch := AIProgram{Nodes: make(map[string]AINode)}
	for name, node := range p.Nodes {
		baseNode, ok := baseProg.Nodes[name]
		if !ok || !baseNode.equal(node) {
			patch.Nodes[name] = node
		}
	}
	if !equalStringSlice(baseProg.Roots, p.Roots) {
		patch.Roots = p.Roots
	}
	return patch, nil
}

// MergeWith implements resource.Mergeable.
func (p AIProgram) MergeWith(patch resource.Mergeable) (resource.Mergeable, error) {
	prog, ok := patch.(AIProgram)
	if !ok {
		return nil, fmt.Errorf("merge: AIProgram.MergeWith: mismatched kind %T", patch)
	}
	result := AIProgram{Roots: p.Roots, Nodes: make(map[string]AINode, len(p.Nodes))}
	for name, node := range p.Nodes {
		result.Nodes[name] = node
	}
	for name, node := range prog.Nodes {
		result.Nodes[name] = node
	}
	if prog.Roots != nil {
		result.Roots = prog.Roots
	}
	return result, nil
}

// Equal performs structural comparison.
func (p AIProgram) Equal(other AIProgram) bool {
	if !equalStringSlice(p.Roots, other.Roots) {
		return false
	}
	if len(p.Nodes) != len(other.Nodes) {
		return false
	}
	for name, node := range p.Nodes {
		otherNode, ok := other.Nodes[name]
		if !ok || !node.equal(otherNode) {
			return false
		}
	}
	return true
}
