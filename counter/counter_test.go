package counter

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type put struct {
	room  string
	count int
}

type mockPersister struct {
	mu   sync.Mutex
	puts []put
}

func (m *mockPersister) Put(room string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts = append(m.puts, put{room: room, count: count})
}

func (m *mockPersister) getPuts() []put {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

func TestStore_Counts(t *testing.T) {
	tests := []struct {
		name      string
		ops       func(*Store)
		wantRooms map[string]int
		wantTotal int
	}{
		{
			name:      "empty store",
			ops:       func(s *Store) {},
			wantRooms: map[string]int{},
			wantTotal: 0,
		},
		{
			name: "increments accumulate",
			ops: func(s *Store) {
				s.Increment("lobby")
				s.Increment("lobby")
				s.Increment("office")
			},
			wantRooms: map[string]int{"lobby": 2, "office": 1},
			wantTotal: 3,
		},
		{
			name: "room deleted at zero",
			ops: func(s *Store) {
				s.Increment("lobby")
				s.Increment("office")
				s.Decrement("lobby")
			},
			wantRooms: map[string]int{"office": 1},
			wantTotal: 1,
		},
		{
			name: "decrement clamps at zero",
			ops: func(s *Store) {
				s.Decrement("lobby")
				s.Decrement("lobby")
			},
			wantRooms: map[string]int{},
			wantTotal: 0,
		},
		{
			name: "unmatched decrement never goes negative",
			ops: func(s *Store) {
				s.Increment("lobby")
				s.Decrement("lobby")
				s.Decrement("lobby")
				s.Increment("lobby")
			},
			wantRooms: map[string]int{"lobby": 1},
			wantTotal: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(nil)
			tt.ops(s)

			rooms, total := s.Snapshot()
			assert.Equal(t, tt.wantRooms, rooms)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestStore_TotalMatchesSum(t *testing.T) {
	s := New(nil)
	ops := []struct {
		room string
		join bool
	}{
		{"lobby", true}, {"lobby", true}, {"office", true},
		{"lobby", false}, {"office", false},
		{"lobby", true}, {"lobby", false}, {"lobby", false},
		{"lobby", false}, {"lobby", true},
	}

	for i, op := range ops {
		if op.join {
			s.Increment(op.room)
		} else {
			s.Decrement(op.room)
		}

		rooms, total := s.Snapshot()
		sum := 0
		for _, n := range rooms {
			sum += n
		}
		require.Equal(t, sum, total, "op %d: total must equal the sum of room counts", i)
		require.GreaterOrEqual(t, total, 0, "op %d", i)
	}
}

func TestStore_ReturnsNewCount(t *testing.T) {
	s := New(nil)

	assert.Equal(t, 1, s.Increment("lobby"))
	assert.Equal(t, 2, s.Increment("lobby"))
	assert.Equal(t, 1, s.Decrement("lobby"))
	assert.Equal(t, 0, s.Decrement("lobby"))
	assert.Equal(t, 0, s.Decrement("lobby"))
}

func TestStore_PersistsEveryChange(t *testing.T) {
	p := &mockPersister{}
	s := New(p)

	s.Increment("lobby")
	s.Increment("lobby")
	s.Decrement("lobby")
	s.Decrement("lobby")

	assert.Equal(t, []put{
		{"lobby", 1},
		{"lobby", 2},
		{"lobby", 1},
		{"lobby", 0},
	}, p.getPuts())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := New(nil)
	s.Increment("lobby")

	rooms, _ := s.Snapshot()
	rooms["lobby"] = 99

	again, total := s.Snapshot()
	assert.Equal(t, 1, again["lobby"])
	assert.Equal(t, 1, total)
}
