package calendar

import (
	"context"

	"github.com/looplab/fsm"
)

// Sync attempt states.
const (
	StateIdle        = "idle"
	StateFetching    = "fetching"
	StateParsing     = "parsing"
	StateFiltering   = "filtering"
	StateReplacing   = "replacing"
	StateFetchFailed = "fetch_failed"
	StateSyncFailed  = "sync_failed"
	StateSynced      = "synced"
)

// Sync attempt events.
const (
	EventFetch     = "fetch"
	EventParse     = "parse"
	EventFilter    = "filter"
	EventReplace   = "replace"
	EventRecord    = "record"
	EventFailFetch = "fail_fetch"
	EventFailSync  = "fail_sync"
)

// syncAttempt tracks one pass through the feed sync pipeline. Terminal
// states are fetch_failed, sync_failed, and synced; a fetch failure leaves
// previously imported bookings untouched, while a sync failure happens after
// the feed was fetched but before its bookings were recorded.
type syncAttempt struct {
	fsm *fsm.FSM
}

func newSyncAttempt() *syncAttempt {
	return &syncAttempt{
		fsm: fsm.NewFSM(
			StateIdle,
			fsm.Events{
				{Name: EventFetch, Src: []string{StateIdle}, Dst: StateFetching},
				{Name: EventParse, Src: []string{StateFetching}, Dst: StateParsing},
				{Name: EventFilter, Src: []string{StateParsing}, Dst: StateFiltering},
				{Name: EventReplace, Src: []string{StateFiltering}, Dst: StateReplacing},
				{Name: EventRecord, Src: []string{StateReplacing}, Dst: StateSynced},
				{Name: EventFailFetch, Src: []string{StateFetching}, Dst: StateFetchFailed},
				{Name: EventFailSync, Src: []string{StateParsing, StateFiltering, StateReplacing}, Dst: StateSyncFailed},
			},
			fsm.Callbacks{},
		),
	}
}

// advance fires the given event. Transitions are fixed at construction, so
// an error here indicates a pipeline bug, not bad feed data.
func (a *syncAttempt) advance(ctx context.Context, event string) error {
	return a.fsm.Event(ctx, event)
}

// state returns the attempt's current state.
func (a *syncAttempt) state() string {
	return a.fsm.Current()
}
