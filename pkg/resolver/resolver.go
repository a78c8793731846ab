// Package resolver decides whether a status change reported for a lineage is
// written. The status a provider returns when asked directly is what gets
// persisted; a webhook only triggers the check.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/chris/payment-reconciliation/pkg/status"
	"github.com/chris/payment-reconciliation/pkg/storage"
)

// ErrAuthoritativeFetch is wrapped into the error returned when the provider
// could not be asked for the current status. Nothing is written in that case
// and the caller may retry.
var ErrAuthoritativeFetch = errors.New("failed to fetch authoritative status")

// Outcome says what a resolution did.
type Outcome string

const (
	// Applied means the authoritative status is ahead of what is stored.
	Applied Outcome = "applied"
	// Duplicate means the stored status is already at or past the authoritative one.
	Duplicate Outcome = "duplicate"
	// Unhandled means the candidate or the authoritative status has no place in
	// any lineage.
	Unhandled Outcome = "unhandled"
	// Discarded means the candidate claims more than the provider confirms.
	Discarded Outcome = "discarded"
)

// FetchFunc asks the provider for the current status of the lineage and
// returns it along with the raw provider payload.
type FetchFunc func(ctx context.Context) (status.Canonical, map[string]any, error)

// Input describes one resolution.
type Input struct {
	TransactionId string
	// LineageKey is the key inside the transaction's lineages map.
	LineageKey string
	// Persisted is the stored status name of the lineage, empty if none.
	Persisted string
	// Candidate is the status a webhook claims. Nil for a direct re-check.
	Candidate *status.Canonical
	// Project names the refund lineage transfer statuses are projected onto.
	// LineageNone leaves statuses as they are.
	Project status.Lineage
	// HistoryPath, when set, receives the raw provider payload as an appended
	// entry instead of it overwriting provider_response.
	HistoryPath string
	Fetch       FetchFunc
}

// Decision is the result of a resolution. Update is only set when Apply is true.
type Decision struct {
	Apply     bool
	Outcome   Outcome
	Status    status.Canonical
	Candidate status.Canonical
	Previous  status.Canonical
	Raw       map[string]any
	Update    *storage.Update
}

// Resolve compares the authoritative status of a lineage with the candidate
// and the persisted status.
func Resolve(ctx context.Context, in Input) (*Decision, error) {
	d := &Decision{Outcome: Unhandled}
	d.Previous, _ = status.Parse(in.Persisted)

	if in.Candidate != nil {
		d.Candidate = project(*in.Candidate, in.Project)
		if d.Candidate.IsUnhandled() {
			return d, nil
		}
	}

	if in.Fetch == nil {
		return nil, fmt.Errorf("%w: no status check for transaction %s", ErrAuthoritativeFetch, in.TransactionId)
	}
	fetched, raw, err := in.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w for transaction %s: %w", ErrAuthoritativeFetch, in.TransactionId, err)
	}
	d.Status = project(fetched, in.Project)
	d.Raw = raw

	if d.Status.IsUnhandled() {
		return d, nil
	}

	if in.Candidate != nil {
		if !status.Comparable(d.Candidate, d.Status) || status.Priority(d.Candidate) > status.Priority(d.Status) {
			d.Outcome = Discarded
			return d, nil
		}
	}

	if status.Comparable(d.Status, d.Previous) && status.Priority(d.Status) <= status.Priority(d.Previous) {
		d.Outcome = Duplicate
		return d, nil
	}

	d.Apply = true
	d.Outcome = Applied
	d.Update = storage.NewUpdate().Set(storage.LineagePath(in.LineageKey), d.Status.Name)
	if in.HistoryPath != "" {
		d.Update.Append(in.HistoryPath, raw)
	} else {
		d.Update.Set(storage.AttrProviderResponse, raw)
	}
	return d, nil
}

func project(s status.Canonical, lineage status.Lineage) status.Canonical {
	if lineage == status.LineageNone {
		return s
	}
	return status.ProjectTransfer(s, lineage)
}
