// Package payment is the simulated M-Pesa collaborator. There is no real
// gateway behind it; a request that passes phone validation always resolves
// after a fixed artificial delay.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/bher20/ubill/internal/accesscode"
)

// ErrInvalidPhone is returned before any delay when the phone number does not
// match the national format 254 + 7|1 + 8 digits.
var ErrInvalidPhone = errors.New("invalid phone number format, use 254XXXXXXXXX")

var phoneRe = regexp.MustCompile(`^254[71][0-9]{8}$`)

// Status is the two-state payment protocol: a request is Pending until the
// simulated gateway resolves it.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Request describes a payment initiation.
type Request struct {
	PhoneNumber string  `json:"phoneNumber"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// Result is the gateway's resolution of a request.
type Result struct {
	Status  Status `json:"status"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Service simulates payment initiation. The sleeper is injectable so tests
// resolve without real time passing.
type Service struct {
	codes *accesscode.Service
	delay time.Duration
	sleep func(time.Duration)
}

// NewService returns a Service with the production two-second delay.
func NewService(codes *accesscode.Service) *Service {
	return &Service{codes: codes, delay: 2 * time.Second, sleep: time.Sleep}
}

// NewServiceWithSleeper overrides the artificial delay mechanism.
func NewServiceWithSleeper(codes *accesscode.Service, delay time.Duration, sleep func(time.Duration)) *Service {
	return &Service{codes: codes, delay: delay, sleep: sleep}
}

// Initiate validates the phone format, waits out the simulated gateway delay
// and issues a fresh access code, standing in for the SMS the real system
// would send. Once the delay starts the request always resolves; there is no
// cancellation mid-flight.
func (s *Service) Initiate(ctx context.Context, req Request) (Result, error) {
	if !phoneRe.MatchString(req.PhoneNumber) {
		return Result{Status: StatusFailed}, ErrInvalidPhone
	}

	log.Printf("payment: initiating %s to %s for %q", fmt.Sprintf("KES %.2f", req.Amount), req.PhoneNumber, req.Description)

	s.sleep(s.delay)

	code := s.codes.GenerateCode()
	if err := s.codes.Add(ctx, code); err != nil {
		return Result{Status: StatusFailed, Message: "payment processed but access code issuance failed"}, err
	}
	log.Printf("payment: processed, access code %s sent via SMS to %s", code, req.PhoneNumber)

	return Result{
		Status:  StatusSucceeded,
		Success: true,
		Message: "We are validating your payment. An access code will be sent to your phone via SMS shortly.",
	}, nil
}
