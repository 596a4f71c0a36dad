package merge

import (
	"encoding/binary"
	"fmt"

	"github.com/kestrelmods/kestrel/pkg/format/aamp"
	"github.com/kestrelmods/kestrel/pkg/resource"
)

// AttClient is the actor-target-client composite kind (KindAttClient): a
// parameter tree holding the client's core settings, plus an ordered,
// deletable sequence of query names a mod can add to or remove from.
// Queries are identified by their own text, matching the deletable-
// sequence pattern's mark-delete-by-identity rule.
//
// Queries doubles as both the resolved (base or merged) shape and the
// patch shape a Diff produces: in the resolved shape no entry is ever
// Deleted; a patch carries Deleted entries for queries a mod removes,
// mirroring the pattern ObjList uses for map-section deletions.
type AttClient struct {
	Root    *aamp.ParameterList
	Queries []DeletableEntry[string]
}

func init() {
	resource.RegisterKind(resource.KindAttClient, func(data []byte, order binary.ByteOrder) (resource.Mergeable, error) {
		pio, err := aamp.FromBinaryOrder(data, order)
		if err != nil {
			return nil, err
		}
		queries := extractQueries(pio.ParameterList)
		return AttClient{Root: pio.ParameterList, Queries: queries}, nil
	})
}

// extractQueries reads the ordered query sequence back out of the tree:
// surviving (or newly added) names from the "Queries" child object, and
// any mark-deleted names from a sibling "QueriesDeleted" object, the two-
// list tombstone scheme ToBinaryOrder writes a patch with. The "Queries"
// list is then removed from root, so Root holds only the client's settings
// tree and the sequence lives in the Queries field alone.
func extractQueries(root *aamp.ParameterList) []DeletableEntry[string] {
	var out []DeletableEntry[string]
	if queriesList, ok := root.List("Queries"); ok {
		if obj, ok := queriesList.Object("Queries"); ok {
			obj.Range(func(_ uint32, v aamp.Parameter) bool {
				if v.Type == aamp.TypeString {
					out = append(out, DeletableEntry[string]{Value: v.Str})
				}
				return true
			})
		}
		if obj, ok := queriesList.Object("QueriesDeleted"); ok {
			obj.Range(func(_ uint32, v aamp.Parameter) bool {
				if v.Type == aamp.TypeString {
					out = append(out, DeletableEntry[string]{Value: v.Str, Deleted: true})
				}
				return true
			})
		}
		root.Lists.Delete(aamp.HashName("Queries"))
	}
	return out
}

// queriesToParamList writes a query sequence back into tree form: live
// entries under "Queries", deleted entries (if any) under the sibling
// "QueriesDeleted" tombstone list. A fully-resolved AttClient (no
// Deleted entries) omits "QueriesDeleted" entirely.
func queriesToParamList(queries []DeletableEntry[string]) *aamp.ParameterList {
	list := aamp.NewParameterList()
	live := aamp.NewParameterObject()
	var deleted *aamp.ParameterObject
	liveIdx, deletedIdx := uint32(0), uint32(0)
	for _, q := range queries {
		if q.Deleted {
			if deleted == nil {
				d := aamp.NewParameterObject()
				deleted = &d
			}
			deleted.Set(deletedIdx, aamp.Parameter{Type: aamp.TypeString, Str: q.Value})
			deletedIdx++
			continue
		}
		live.Set(liveIdx, aamp.Parameter{Type: aamp.TypeString, Str: q.Value})
		liveIdx++
	}
	list.SetObject("Queries", live)
	if deleted != nil {
		list.SetObject("QueriesDeleted", *deleted)
	}
	return list
}

func queryIdentity(q string) string { return q }

// Kind implements resource.Mergeable.
func (a AttClient) Kind() resource.Kind { return resource.KindAttClient }

// ToBinary implements resource.Mergeable. The query sequence is written
// back into the tree under "Queries"/"QueriesDeleted" before
// serialisation, so the in-memory Queries field and the binary
// representation never diverge.
func (a AttClient) ToBinary() []byte {
	return a.ToBinaryOrder(binary.LittleEndian)
}

// ToBinaryOrder implements resource.Mergeable.
func (a AttClient) ToBinaryOrder(order binary.ByteOrder) []byte {
	root := a.Root.Clone()
	root.SetList("Queries", queriesToParamList(a.Queries))
	return aamp.ParameterIO{ParameterList: root}.ToBinaryOrder(order)
}

func liveQueryNames(entries []DeletableEntry[string]) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Deleted {
			names = append(names, e.Value)
		}
	}
	return names
}

// Diff implements resource.Mergeable.
func (a AttClient) Diff(base resource.Mergeable) (resource.Mergeable, error) {
	baseClient, ok := base.(AttClient)
	if !ok {
		return nil, fmt.Errorf("merge: AttClient.Diff: mismatched kind %T", base)
	}
	treePatch := DiffList(baseClient.Root, a.Root)
	queryPatch := DiffDeletable(liveQueryNames(baseClient.Queries), liveQueryNames(a.Queries), queryIdentity)
	return AttClient{Root: treePatch, Queries: queryPatch}, nil
}

// MergeWith implements resource.Mergeable.
func (a AttClient) MergeWith(patch resource.Mergeable) (resource.Mergeable, error) {
	p, ok := patch.(AttClient)
	if !ok {
		return nil, fmt.Errorf("merge: AttClient.MergeWith: mismatched kind %T", patch)
	}
	mergedNames := MergeDeletable(liveQueryNames(a.Queries), p.Queries, queryIdentity)
	mergedQueries := make([]DeletableEntry[string], len(mergedNames))
	for i, n := range mergedNames {
		mergedQueries[i] = DeletableEntry[string]{Value: n}
	}
	return AttClient{
		Root:    MergeList(a.Root, p.Root),
		Queries: mergedQueries,
	}, nil
}

// Equal performs structural comparison.
func (a AttClient) Equal(other AttClient) bool {
	if !a.Root.Equal(other.Root) {
		return false
	}
	if len(a.Queries) != len(other.Queries) {
		return false
	}
	for i := range a.Queries {
		if a.Queries[i] != other.Queries[i] {
			return false
		}
	}
	return true
}
