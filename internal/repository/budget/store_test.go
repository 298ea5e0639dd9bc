package budget

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/challasaiteja/gemini-quizify/internal/db"
)

type fakeKV struct {
	data      map[string]int64
	raw       map[string][]byte
	expires   map[string]time.Duration
	incrErr   error
	expireErr error
	getErr    error
}

func newFakeKV() *fakeKV {
	return &fakeKV{
		data:    make(map[string]int64),
		raw:     make(map[string][]byte),
		expires: make(map[string]time.Duration),
	}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if b, ok := f.raw[key]; ok {
		return b, nil
	}
	v, ok := f.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return []byte(strconv.FormatInt(v, 10)), nil
}

func (f *fakeKV) IncrBy(_ context.Context, key string, val int64) error {
	if f.incrErr != nil {
		return f.incrErr
	}
	f.data[key] += val
	return nil
}

func (f *fakeKV) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	if f.expireErr != nil {
		return f.expireErr
	}
	if _, set := f.expires[key]; nx && set {
		return nil
	}
	f.expires[key] = ttl
	return nil
}

func TestStore_IncrByAndGet(t *testing.T) {
	kv := newFakeKV()
	s := New(kv, 0, 0)
	ctx := context.Background()
	daily := "quizify:budget:vertex:daily:2026-10-18"
	monthly := "quizify:budget:vertex:monthly:2026-10"

	for _, key := range []string{daily, monthly} {
		if err := s.IncrBy(ctx, key, 40); err != nil {
			t.Fatalf("IncrBy(%s): %v", key, err)
		}
		if err := s.IncrBy(ctx, key, 2); err != nil {
			t.Fatalf("IncrBy(%s): %v", key, err)
		}
		got, err := s.Get(ctx, key)
		if err != nil || got != 42 {
			t.Errorf("Get(%s) = %d, %v", key, got, err)
		}
	}
	if kv.expires[daily] != DefaultDailyTTL {
		t.Errorf("daily ttl = %v", kv.expires[daily])
	}
	if kv.expires[monthly] != DefaultMonthlyTTL {
		t.Errorf("monthly ttl = %v", kv.expires[monthly])
	}
}

func TestStore_GetMissingIsZero(t *testing.T) {
	s := New(newFakeKV(), time.Hour, time.Hour)
	got, err := s.Get(context.Background(), "quizify:budget:x:daily:2026-01-01")
	if err != nil || got != 0 {
		t.Fatalf("Get() = %d, %v", got, err)
	}
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()

	kv := newFakeKV()
	kv.raw["k"] = []byte("not-a-number")
	if _, err := New(kv, 0, 0).Get(ctx, "k"); err == nil {
		t.Error("expected parse error")
	}

	kv = newFakeKV()
	kv.getErr = errors.New("timeout")
	if _, err := New(kv, 0, 0).Get(ctx, "k"); err == nil {
		t.Error("expected get error")
	}

	kv = newFakeKV()
	kv.incrErr = errors.New("readonly")
	if err := New(kv, 0, 0).IncrBy(ctx, "k", 1); err == nil {
		t.Error("expected incr error")
	}

	kv = newFakeKV()
	kv.expireErr = errors.New("readonly")
	if err := New(kv, 0, 0).IncrBy(ctx, "k", 1); err == nil {
		t.Error("expected expire error")
	}
}
