package notify

import (
	"context"
	"fmt"
)

// Request is a single notification to display.
type Request struct {
	Summary string
	Body    string
	// Icon is a file path or icon theme name; empty for none.
	Icon    string
	Urgency Urgency
}

// Shim displays one notification per call. Every call opens its
// own Session and releases it before returning, so a Shim holds no
// service state between calls. It is not safe for concurrent use.
type Shim struct {
	service Service
	appName string
}

// NewShim returns a Shim that identifies itself as appName.
func NewShim(service Service, appName string) *Shim {
	return &Shim{service: service, appName: appName}
}

// Notify displays req. The error, if any, matches ErrServiceInit
// or ErrDisplay, or ErrInvalidUrgency when req is rejected before
// the service is contacted.
func (s *Shim) Notify(ctx context.Context, req Request) error {
	_, err := s.Send(ctx, req)
	return err
}

// Send is Notify, returning the id the server assigned.
func (s *Shim) Send(ctx context.Context, req Request) (ID, error) {
	if !req.Urgency.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidUrgency, byte(req.Urgency))
	}

	session, err := s.service.Init(ctx, s.appName)
	if err != nil {
		return 0, &Error{Kind: ErrServiceInit, Step: StepInit, Err: err}
	}
	// Shutdown errors are not reported; the popup was already handed off.
	defer func() { _ = session.Shutdown() }()

	note := session.Create(req.Summary, req.Body, req.Icon)
	defer session.Release(note)

	if err := session.Update(note, req.Summary, req.Body, req.Icon); err != nil {
		return 0, &Error{Kind: ErrDisplay, Step: StepUpdate, Err: err}
	}
	session.SetUrgency(note, req.Urgency)

	id, err := session.Show(note)
	if err != nil {
		return 0, &Error{Kind: ErrDisplay, Step: StepShow, Err: err}
	}
	return id, nil
}
