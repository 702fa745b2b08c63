package viewstate

import (
	"errors"
	"sync"
	"time"
)

// ErrSuperseded 请求完成时已有更新的请求发出（或视图已关闭），结果被丢弃
var ErrSuperseded = errors.New("result superseded by a newer request")

// Status 视图状态
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// State 某一时刻的视图快照
// 加载中或失败时 Value 保留上一次成功的值（HasValue 标记是否有过成功值）
type State[T any] struct {
	Status    Status
	Value     T
	HasValue  bool
	Err       error
	Seq       uint64 // 最近一次发出的请求序号
	UpdatedAt time.Time
}

// Ticket 一次请求的序号凭证
type Ticket struct {
	seq uint64
}

// Seq 请求序号
func (t Ticket) Seq() uint64 { return t.seq }

// Listener 状态变化回调
// 回调在状态转换的串行上下文中执行，不能在回调中同步触发新的状态转换
type Listener[T any] func(State[T])

// Store 控制器独占的视图状态：idle → loading → ready | error
// 所有转换串行执行，监听者按转换顺序收到通知；请求采用"最后发出者胜"
type Store[T any] struct {
	transition sync.Mutex // 串行化转换和通知
	mu         sync.RWMutex

	state     State[T]
	latest    uint64
	settled   State[T] // 最近一次非 loading 的状态，用于放弃请求时恢复
	closed    bool
	listeners map[int]Listener[T]
	nextID    int

	now func() time.Time
}

// NewStore 创建空视图
func NewStore[T any]() *Store[T] {
	return &Store[T]{
		state:     State[T]{Status: StatusIdle},
		listeners: make(map[int]Listener[T]),
		now:       time.Now,
	}
}

// Snapshot 当前状态
func (s *Store[T]) Snapshot() State[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe 订阅状态变化，返回取消订阅函数
func (s *Store[T]) Subscribe(fn Listener[T]) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Begin 发出新请求：分配递增序号，状态置为 loading，保留旧值
func (s *Store[T]) Begin() Ticket {
	var ticket Ticket
	s.apply(func(st *State[T]) bool {
		if st.Status != StatusLoading {
			s.settled = *st
		}
		s.latest++
		ticket = Ticket{seq: s.latest}
		st.Status = StatusLoading
		st.Err = nil
		st.Seq = s.latest
		return true
	})
	return ticket
}

// IsLatest ticket 是否仍是最近一次请求
func (s *Store[T]) IsLatest(t Ticket) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed && t.seq == s.latest
}

// Succeed 请求成功；仅当 ticket 仍为最新请求且视图未关闭时生效
func (s *Store[T]) Succeed(t Ticket, value T) bool {
	return s.SucceedFunc(t, func(T) T { return value })
}

// SucceedFunc 同 Succeed，新值基于生效时刻的旧值计算
func (s *Store[T]) SucceedFunc(t Ticket, fn func(prev T) T) bool {
	return s.apply(func(st *State[T]) bool {
		if t.seq != s.latest {
			return false
		}
		st.Value = fn(st.Value)
		st.HasValue = true
		st.Status = StatusReady
		st.Err = nil
		return true
	})
}

// Fail 请求失败；保留上一次成功的值
func (s *Store[T]) Fail(t Ticket, err error) bool {
	return s.apply(func(st *State[T]) bool {
		if t.seq != s.latest {
			return false
		}
		st.Status = StatusError
		st.Err = err
		return true
	})
}

// Abandon 放弃请求（如调用方已取消）：恢复发出请求前的状态和错误，保留当前值
func (s *Store[T]) Abandon(t Ticket) bool {
	return s.apply(func(st *State[T]) bool {
		if t.seq != s.latest || st.Status != StatusLoading {
			return false
		}
		st.Status = s.settled.Status
		st.Err = s.settled.Err
		return true
	})
}

// Mutate 不经过网络的本地变更（如搜索词），不改变状态
func (s *Store[T]) Mutate(fn func(prev T) T) bool {
	return s.apply(func(st *State[T]) bool {
		st.Value = fn(st.Value)
		return true
	})
}

// Close 关闭视图：之后不再接受转换，也不再通知监听者
// Close 返回时正在进行的通知已经完成
func (s *Store[T]) Close() {
	s.transition.Lock()
	defer s.transition.Unlock()

	s.mu.Lock()
	s.closed = true
	s.listeners = make(map[int]Listener[T])
	s.mu.Unlock()
}

// Closed 是否已关闭
func (s *Store[T]) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store[T]) apply(mutate func(st *State[T]) bool) bool {
	s.transition.Lock()
	defer s.transition.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if !mutate(&s.state) {
		s.mu.Unlock()
		return false
	}
	s.state.UpdatedAt = s.now()
	snapshot := s.state
	listeners := make([]Listener[T], 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snapshot)
	}
	return true
}
