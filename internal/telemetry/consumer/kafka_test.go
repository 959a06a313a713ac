package consumer

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	mu   sync.Mutex
	msgs []kafka.Message
	errs []error
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return kafka.Message{}, err
		}
	}
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) Close() error { return nil }

func TestRun_DeliversUntilEOF(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{{Value: []byte("a")}, {Value: []byte("b")}, {Value: []byte("c")}}}
	var got []string
	sink := func(ctx context.Context, v []byte) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("sink context should carry a deadline")
		}
		got = append(got, string(v))
		if string(v) == "b" {
			return errors.New("loki down")
		}
		return nil
	}
	if err := Run(context.Background(), reader, sink, time.Second, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("delivered = %v, want all three in order", got)
	}
}

func TestRun_RetriesReadErrors(t *testing.T) {
	reader := &fakeReader{
		errs: []error{errors.New("rebalance"), nil},
		msgs: []kafka.Message{{Value: []byte("x")}},
	}
	var n int
	err := Run(context.Background(), reader, func(context.Context, []byte) error { n++; return nil }, time.Second, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Errorf("delivered = %d, want 1", n)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	reader := &fakeReader{errs: []error{errors.New("broker unreachable")}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Run(ctx, reader, func(context.Context, []byte) error { return nil }, time.Second, nil); err != nil {
		t.Errorf("Run = %v, want nil on cancel", err)
	}
}
