package viewstate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Lifecycle(t *testing.T) {
	s := NewStore[string]()
	assert.Equal(t, StatusIdle, s.Snapshot().Status)

	var seen []Status
	s.Subscribe(func(st State[string]) { seen = append(seen, st.Status) })

	ticket := s.Begin()
	assert.Equal(t, StatusLoading, s.Snapshot().Status)
	require.True(t, s.Succeed(ticket, "first"))

	st := s.Snapshot()
	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, "first", st.Value)
	assert.True(t, st.HasValue)

	ticket = s.Begin()
	// 刷新中保留旧值
	assert.Equal(t, "first", s.Snapshot().Value)
	require.True(t, s.Fail(ticket, errors.New("boom")))

	st = s.Snapshot()
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, "first", st.Value)
	assert.EqualError(t, st.Err, "boom")

	assert.Equal(t, []Status{StatusLoading, StatusReady, StatusLoading, StatusError}, seen)
}

func TestStore_LastRequestWins(t *testing.T) {
	s := NewStore[string]()

	a := s.Begin()
	b := s.Begin()
	assert.False(t, s.IsLatest(a))
	assert.True(t, s.IsLatest(b))

	require.True(t, s.Succeed(b, "B"))
	// A 的响应晚到，被丢弃
	assert.False(t, s.Succeed(a, "A"))
	assert.False(t, s.Fail(a, errors.New("late")))

	st := s.Snapshot()
	assert.Equal(t, "B", st.Value)
	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, b.Seq(), st.Seq)
}

func TestStore_SucceedFuncSeesCurrentValue(t *testing.T) {
	s := NewStore[[]string]()
	ticket := s.Begin()
	s.Mutate(func(prev []string) []string { return append(prev, "local") })
	s.SucceedFunc(ticket, func(prev []string) []string { return append(prev, "remote") })
	assert.Equal(t, []string{"local", "remote"}, s.Snapshot().Value)
}

func TestStore_CloseStopsDeliveries(t *testing.T) {
	s := NewStore[int]()
	calls := 0
	s.Subscribe(func(State[int]) { calls++ })

	ticket := s.Begin()
	s.Close()
	assert.True(t, s.Closed())
	assert.False(t, s.Succeed(ticket, 42))
	assert.False(t, s.Mutate(func(int) int { return 1 }))
	assert.False(t, s.IsLatest(ticket))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, s.Snapshot().Value)

	// 关闭后订阅无效
	unsubscribe := s.Subscribe(func(State[int]) { calls++ })
	unsubscribe()
	s.Begin()
	assert.Equal(t, 1, calls)
}

func TestStore_Unsubscribe(t *testing.T) {
	s := NewStore[int]()
	calls := 0
	unsubscribe := s.Subscribe(func(State[int]) { calls++ })
	s.Begin()
	unsubscribe()
	s.Begin()
	assert.Equal(t, 1, calls)
}

func TestStore_ListenersNotifiedInSubscriptionOrder(t *testing.T) {
	s := NewStore[int]()
	var order []string
	s.Subscribe(func(State[int]) { order = append(order, "first") })
	s.Subscribe(func(State[int]) { order = append(order, "second") })
	s.Mutate(func(int) int { return 1 })
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestStore_AbandonRestoresSettledState(t *testing.T) {
	s := NewStore[string]()

	ticket := s.Begin()
	require.True(t, s.Abandon(ticket))
	assert.Equal(t, StatusIdle, s.Snapshot().Status)

	require.True(t, s.Succeed(s.Begin(), "ok"))
	boom := errors.New("boom")
	require.True(t, s.Fail(s.Begin(), boom))

	// 连续两次 Begin 后放弃，恢复的是第一次 Begin 之前的状态
	s.Begin()
	latest := s.Begin()
	require.True(t, s.Abandon(latest))
	st := s.Snapshot()
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, boom, st.Err)
	assert.Equal(t, "ok", st.Value)

	stale := s.Begin()
	s.Begin()
	assert.False(t, s.Abandon(stale))
	assert.Equal(t, StatusLoading, s.Snapshot().Status)
}
