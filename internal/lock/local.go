// Package lock 按 key 串行化同一学生在同一班级内的写操作
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLockTimeout 在等待期限内没有拿到锁
var ErrLockTimeout = errors.New("获取锁超时")

// Local 进程内按 key 的互斥锁；不同 key 互不阻塞
type Local struct {
	mu   sync.Mutex
	keys map[string]*entry
}

type entry struct {
	ch   chan struct{} // 容量 1 的信号量，支持 ctx 取消等待
	refs int
}

func NewLocal() *Local {
	return &Local{keys: make(map[string]*entry)}
}

// Lock 阻塞直到拿到 key 的锁或 ctx 结束；返回的 unlock 可重复调用
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, errors.Join(ErrLockTimeout, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, nil
}

func (l *Local) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}

// size 当前持有或等待中的 key 数
func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
