package ui

import (
	"context"

	"github.com/Mohsinsiddi/w3dash/internal/provider"
)

// Approvals routes signature requests to the dashboard, which owns the
// terminal while it runs.
type Approvals struct {
	reqs chan approvalReq
}

type approvalReq struct {
	req   provider.SignRequest
	reply chan bool
}

// NewApprovals creates an empty approval queue.
func NewApprovals() *Approvals {
	return &Approvals{reqs: make(chan approvalReq)}
}

// Approver blocks until the dashboard answers or ctx ends.
func (a *Approvals) Approver() provider.Approver {
	return func(ctx context.Context, req provider.SignRequest) bool {
		reply := make(chan bool, 1)
		select {
		case a.reqs <- approvalReq{req: req, reply: reply}:
		case <-ctx.Done():
			return false
		}
		select {
		case ok := <-reply:
			return ok
		case <-ctx.Done():
			return false
		}
	}
}
