package settlement

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{name: "whole_number", raw: "10", want: 10},
		{name: "surrounding_space", raw: " 7 ", want: 7},
		{name: "leading_zeros", raw: "007", want: 7},
		{name: "empty", raw: "", wantErr: true},
		{name: "zero", raw: "0", wantErr: true},
		{name: "negative", raw: "-5", wantErr: true},
		{name: "plus_sign", raw: "+5", wantErr: true},
		{name: "fraction", raw: "1.5", wantErr: true},
		{name: "exponent", raw: "1e3", wantErr: true},
		{name: "letters", raw: "ten", wantErr: true},
		{name: "overflow", raw: "99999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuantity(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQuantity) {
					t.Errorf("expected ErrInvalidQuantity, got %d, %v", got, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("expected %d, got %d, %v", tt.want, got, err)
			}
		})
	}
}

func TestAccountLocks(t *testing.T) {
	locks := newAccountLocks()
	ctx := context.Background()

	release, err := locks.acquire(ctx, 1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	// A different account is not blocked.
	other, err := locks.acquire(ctx, 2)
	if err != nil {
		t.Fatalf("acquire other account: %v", err)
	}
	other()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := locks.acquire(waitCtx, 1); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded while held, got %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := locks.acquire(ctx, 1)
		if err != nil {
			t.Errorf("acquire after release: %v", err)
			close(acquired)
			return
		}
		r()
		close(acquired)
	}()

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken after release")
	}

	if n := locks.size(); n != 0 {
		t.Errorf("expected empty registry, got %d entries", n)
	}
}
