package payment

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/bher20/ubill/internal/accesscode"
	"github.com/bher20/ubill/internal/storage"
)

func testService(t *testing.T) (*Service, *accesscode.Service, *int) {
	t.Helper()
	codes := accesscode.NewServiceWithSource(storage.NewMemory(), rand.New(rand.NewSource(1)))
	if err := codes.Init(context.Background()); err != nil {
		t.Fatalf("init codes: %v", err)
	}
	slept := 0
	svc := NewServiceWithSleeper(codes, 2*time.Second, func(time.Duration) { slept++ })
	return svc, codes, &slept
}

func TestInitiate_Success(t *testing.T) {
	svc, codes, slept := testService(t)
	ctx := context.Background()

	before, _ := codes.List(ctx)
	res, err := svc.Initiate(ctx, Request{PhoneNumber: "254712345678", Amount: 14720, Description: "water bill W1234567"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusSucceeded || !res.Success {
		t.Errorf("unexpected result: %+v", res)
	}
	if *slept != 1 {
		t.Errorf("expected exactly one artificial delay, got %d", *slept)
	}

	after, _ := codes.List(ctx)
	if len(after) != len(before)+1 {
		t.Errorf("expected a new access code to be issued: before=%d after=%d", len(before), len(after))
	}
}

func TestInitiate_PhoneFormats(t *testing.T) {
	cases := []struct {
		phone string
		ok    bool
	}{
		{"254712345678", true},
		{"254112345678", true},
		{"254812345678", false}, // third digit must be 7 or 1
		{"25471234567", false},  // too short
		{"2547123456789", false},
		{"0712345678", false},
		{"+254712345678", false},
		{"", false},
	}
	for _, tc := range cases {
		svc, _, slept := testService(t)
		_, err := svc.Initiate(context.Background(), Request{PhoneNumber: tc.phone, Amount: 1})
		if tc.ok && err != nil {
			t.Errorf("phone %q: unexpected error %v", tc.phone, err)
		}
		if !tc.ok {
			if !errors.Is(err, ErrInvalidPhone) {
				t.Errorf("phone %q: expected ErrInvalidPhone, got %v", tc.phone, err)
			}
			if *slept != 0 {
				t.Errorf("phone %q: format errors must fail fast before the delay", tc.phone)
			}
		}
	}
}
