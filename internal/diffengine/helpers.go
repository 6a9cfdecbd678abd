package diffengine

import (
	"reflect"

	"github.com/obriencj-go/javadiff/internal/sortutil"
)

// leafDelta builds a leaf Delta comparing two values with reflect.DeepEqual.
// Used for simple scalar/slice concerns (version, access flags, this-class,
// ...) where there is nothing further to recurse into.
func leafDelta(kind NodeKind, id, label string, left, right any, ignoreToken string) *Delta {
	d := newDelta(kind, id, label)
	d.Left, d.Right = left, right
	d.IgnoreToken = ignoreToken
	if !reflect.DeepEqual(left, right) {
		d.Change = ChangeModified
	}
	return d
}

// compositeDelta folds children's change state into a parent node.
func compositeDelta(kind NodeKind, id, label string, children []*Delta) *Delta {
	d := newDelta(kind, id, label)
	d.Children = filterNil(children)
	d.Change = aggregateChange(d.Children)
	return d
}

// pairedKeys returns the sorted intersection of two key sets (paired), plus
// which keys are present only on the left (removed) or only on the right
// (added), each sorted, matching
// §4.9's tie-break rule: paired entries by identifier, then added, then
// removed.
func pairedKeys(left, right map[string]struct{}) (paired, added, removed []string) {
	for k := range left {
		if _, ok := right[k]; ok {
			paired = append(paired, k)
		} else {
			removed = append(removed, k)
		}
	}
	for k := range right {
		if _, ok := left[k]; !ok {
			added = append(added, k)
		}
	}
	less := func(a, b string) bool { return a < b }
	paired = sortutil.SortedCopy(paired, less)
	added = sortutil.SortedCopy(added, less)
	removed = sortutil.SortedCopy(removed, less)
	return
}

func stringSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, s := range items {
		out[s] = struct{}{}
	}
	return out
}

// diffStringSet compares two string lists as sets (order-insensitive),
// emitting one added/removed child per differing element.
func diffStringSet(kind NodeKind, id, label string, left, right []string, ignoreToken string) *Delta {
	l, r := stringSet(left), stringSet(right)
	_, added, removed := pairedKeys(l, r)

	var children []*Delta
	for _, a := range added {
		c := newDelta(kind, id+"/"+a, a)
		c.Change = ChangeAdded
		c.Right = a
		children = append(children, c)
	}
	for _, rm := range removed {
		c := newDelta(kind, id+"/"+rm, rm)
		c.Change = ChangeRemoved
		c.Left = rm
		children = append(children, c)
	}

	d := compositeDelta(kind, id, label, children)
	d.IgnoreToken = ignoreToken
	if len(children) == 0 {
		d.Change = ChangeUnchanged
	}
	return d
}
