package ordering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	name  string
	index int
}

func (i *item) GetIndex() int  { return i.index }
func (i *item) SetIndex(v int) { i.index = v }

func items(pairs ...any) []*item {
	var out []*item
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, &item{name: pairs[i].(string), index: pairs[i+1].(int)})
	}
	return out
}

func indexes(list []*item) map[string]int {
	m := make(map[string]int, len(list))
	for _, it := range list {
		m[it.name] = it.index
	}
	return m
}

func intPtr(v int) *int { return &v }

func TestMax(t *testing.T) {
	assert.Equal(t, 0, Max([]*item{}))
	assert.Equal(t, 0, Max[*item](nil))
	assert.Equal(t, 7, Max(items("a", 3, "b", 7, "c", 2)))
	assert.Equal(t, 8, Next(items("a", 3, "b", 7)))
}

func TestInsertAt(t *testing.T) {
	tests := []struct {
		name        string
		list        []*item
		pos         *int
		wantIndex   int
		wantShifted int
		want        map[string]int
	}{
		{
			name:      "append to empty",
			list:      items(),
			wantIndex: 1,
			want:      map[string]int{},
		},
		{
			name:      "append",
			list:      items("a", 1, "b", 4),
			wantIndex: 5,
			want:      map[string]int{"a": 1, "b": 4},
		},
		{
			name:        "insert in the middle",
			list:        items("a", 1, "b", 2, "c", 3),
			pos:         intPtr(2),
			wantIndex:   2,
			wantShifted: 2,
			want:        map[string]int{"a": 1, "b": 3, "c": 4},
		},
		{
			name:        "insert at front",
			list:        items("a", 1, "b", 2),
			pos:         intPtr(1),
			wantIndex:   1,
			wantShifted: 2,
			want:        map[string]int{"a": 2, "b": 3},
		},
		{
			name:      "insert past the end",
			list:      items("a", 1, "b", 2),
			pos:       intPtr(10),
			wantIndex: 10,
			want:      map[string]int{"a": 1, "b": 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, shifted := InsertAt(tt.list, tt.pos)
			assert.Equal(t, tt.wantIndex, index)
			assert.Len(t, shifted, tt.wantShifted)
			assert.Equal(t, tt.want, indexes(tt.list))

			// The new index never collides with a remaining entry
			for _, it := range tt.list {
				assert.NotEqual(t, index, it.index)
			}
		})
	}
}

func TestRemoveKeepsGaps(t *testing.T) {
	list := items("a", 1, "b", 2, "c", 3)

	out := Remove(list, 1)
	require.Len(t, out, 2)
	assert.Equal(t, map[string]int{"a": 1, "c": 3}, indexes(out))
	assert.Len(t, list, 3, "input slice is not modified")

	assert.Len(t, Remove(list, 5), 3)
	assert.Len(t, Remove(list, -1), 3)
}

func TestSwap(t *testing.T) {
	list := items("a", 1, "b", 5, "c", 9)

	changed := Swap(list, 0, 2)
	assert.Len(t, changed, 2)
	assert.Equal(t, map[string]int{"a": 9, "b": 5, "c": 1}, indexes(list))

	// Swapping again restores the original assignment
	Swap(list, 0, 2)
	assert.Equal(t, map[string]int{"a": 1, "b": 5, "c": 9}, indexes(list))

	assert.Nil(t, Swap(list, 1, 1))
}

func TestSwapTieResequences(t *testing.T) {
	// Display order a, b, c, d with b and c tied
	list := items("a", 2, "b", 4, "c", 4, "d", 10)

	changed := Swap(list, 1, 2)

	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3, "d": 4}, indexes(list))
	assert.Len(t, changed, 4)

	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].index, list[i].index)
	}
}

func TestResequenceReportsOnlyChanges(t *testing.T) {
	list := items("a", 1, "b", 2, "c", 2, "d", 7)

	changed := Resequence(list)

	require.Len(t, changed, 2)
	assert.Equal(t, "c", changed[0].name)
	assert.Equal(t, "d", changed[1].name)
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3, "d": 4}, indexes(list))
}

func TestRenumberDiscardsSuppliedIndexes(t *testing.T) {
	list := items("x", 40, "y", 0, "z", -3)
	Renumber(list)
	assert.Equal(t, map[string]int{"x": 1, "y": 2, "z": 3}, indexes(list))
}

func TestSort(t *testing.T) {
	list := items("c", 3, "b2", 2, "a", 1, "b1", 2)

	Sort(list, func(a, b *item) int {
		if a.name < b.name {
			return -1
		}
		if a.name > b.name {
			return 1
		}
		return 0
	})

	var names []string
	for _, it := range list {
		names = append(names, it.name)
	}
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, names)

	// Without a tie breaker equal indexes keep their relative order
	stable := items("y", 1, "x", 1)
	Sort(stable, nil)
	assert.Equal(t, "y", stable[0].name)
}

func TestNeighbor(t *testing.T) {
	assert.Equal(t, 0, Neighbor(3, 1, -1))
	assert.Equal(t, 2, Neighbor(3, 1, 1))
	assert.Equal(t, -1, Neighbor(3, 0, -1))
	assert.Equal(t, -1, Neighbor(3, 2, 1))
	assert.Equal(t, -1, Neighbor(3, 1, 0))
}

func TestHasTies(t *testing.T) {
	tests := []struct {
		name string
		list []*item
		want bool
	}{
		{"empty", nil, false},
		{"distinct with gaps", items("a", 1, "b", 4), false},
		{"tie", items("a", 2, "b", 1, "c", 2), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasTies(tt.list))
		})
	}
}
