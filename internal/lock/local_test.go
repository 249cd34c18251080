package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "s1:c1")
			if err != nil {
				t.Errorf("Lock error: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				cur := atomic.LoadInt32(&maxInside)
				if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("max concurrent holders=%d, want 1", maxInside)
	}
	if l.size() != 0 {
		t.Fatalf("keys leaked: %d", l.size())
	}
}

func TestLocalDifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("Lock a: %v", err)
	}
	defer unlockA()

	ctx2, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	unlockB, err := l.Lock(ctx2, "b")
	if err != nil {
		t.Fatalf("Lock b should not wait for a: %v", err)
	}
	unlockB()
}

func TestLocalHonorsContext(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "k")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "k"); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("err=%v, want ErrLockTimeout", err)
	}

	unlock()
	unlock() // 重复调用无副作用
	if l.size() != 0 {
		t.Fatalf("keys leaked: %d", l.size())
	}
}
