package fsm

import (
	"encoding/json"

	"github.com/canopy-network/stakebatch/lib"
)

// EventType names an engine event
type EventType string

const (
	EventTypeStakeBatchCreated              EventType = "StakeBatchCreated"
	EventTypeStakeBatchCancelled            EventType = "StakeBatchCancelled"
	EventTypeRedeemStakeBatchCreated        EventType = "RedeemStakeBatchCreated"
	EventTypeRedeemStakeBatchCancelled      EventType = "RedeemStakeBatchCancelled"
	EventTypeStakeBatchReceiptCreated       EventType = "StakeBatchReceiptCreated"
	EventTypeRedeemStakeBatchReceiptCreated EventType = "RedeemStakeBatchReceiptCreated"
	EventTypeNearLiquidityAdded             EventType = "NearLiquidityAdded"
	EventTypeEarningsDistributed            EventType = "EarningsDistributed"
	EventTypeStakeTokenValueUpdated         EventType = "StakeTokenValueUpdated"
	EventTypePendingWithdrawalCleared       EventType = "PendingWithdrawalCleared"
	EventTypeLockCleared                    EventType = "LockCleared"
	EventTypeNearWithdrawn                  EventType = "NearWithdrawn"
	EventTypeTaskFailed                     EventType = "TaskFailed"
)

// Event is an entry of the append-only event log
type Event struct {
	Sequence uint64          `json:"sequence"`
	Type     EventType       `json:"type"`
	Height   uint64          `json:"height"`
	Data     json.RawMessage `json:"data"`
}

// BatchEvent is the payload of the batch lifecycle events
type BatchEvent struct {
	BatchId BatchId `json:"batchId"`
}

// StakeBatchReceiptEvent is the payload of StakeBatchReceiptCreated
type StakeBatchReceiptEvent struct {
	BatchId         BatchId         `json:"batchId"`
	StakedNear      lib.YoctoNear   `json:"stakedNear"`
	StakeTokenValue StakeTokenValue `json:"stakeTokenValue"`
}

// RedeemStakeBatchReceiptEvent is the payload of RedeemStakeBatchReceiptCreated
type RedeemStakeBatchReceiptEvent struct {
	BatchId         BatchId         `json:"batchId"`
	RedeemedStake   lib.YoctoStake  `json:"redeemedStake"`
	StakeTokenValue StakeTokenValue `json:"stakeTokenValue"`
}

// NearLiquidityEvent is the payload of NearLiquidityAdded
type NearLiquidityEvent struct {
	Amount  lib.YoctoNear `json:"amount"`
	Balance lib.YoctoNear `json:"balance"`
}

// EarningsEvent is the payload of EarningsDistributed
type EarningsEvent struct {
	Total      lib.YoctoNear `json:"total"`
	OwnerShare lib.YoctoNear `json:"ownerShare"`
	PoolShare  lib.YoctoNear `json:"poolShare"`
}

// LockClearedEvent is the payload of LockCleared
type LockClearedEvent struct {
	Side  string `json:"side"`
	From  string `json:"from"`
	Round uint64 `json:"round"`
}

// NearWithdrawnEvent is the payload of NearWithdrawn: NEAR paid out of the engine
type NearWithdrawnEvent struct {
	AccountId string        `json:"accountId"`
	Amount    lib.YoctoNear `json:"amount"`
}

// TaskFailedEvent is the payload of TaskFailed; stage is 'call' or 'continuation'
type TaskFailedEvent struct {
	TaskId uint64 `json:"taskId"`
	Kind   string `json:"kind"`
	Stage  string `json:"stage"`
	Error  string `json:"error"`
}

func (s *StateMachine) EventStakeBatchCreated(id BatchId) lib.ErrorI {
	return s.addEvent(EventTypeStakeBatchCreated, &BatchEvent{BatchId: id})
}

func (s *StateMachine) EventStakeBatchCancelled(id BatchId) lib.ErrorI {
	return s.addEvent(EventTypeStakeBatchCancelled, &BatchEvent{BatchId: id})
}

func (s *StateMachine) EventRedeemStakeBatchCreated(id BatchId) lib.ErrorI {
	return s.addEvent(EventTypeRedeemStakeBatchCreated, &BatchEvent{BatchId: id})
}

func (s *StateMachine) EventRedeemStakeBatchCancelled(id BatchId) lib.ErrorI {
	return s.addEvent(EventTypeRedeemStakeBatchCancelled, &BatchEvent{BatchId: id})
}

// EventStakeBatchReceiptCreated() adds a stake batch settled event
func (s *StateMachine) EventStakeBatchReceiptCreated(r *StakeBatchReceipt) lib.ErrorI {
	return s.addEvent(EventTypeStakeBatchReceiptCreated, &StakeBatchReceiptEvent{
		BatchId:         r.BatchId,
		StakedNear:      r.Original,
		StakeTokenValue: r.StakeTokenValue,
	})
}

// EventRedeemStakeBatchReceiptCreated() adds a redeem batch unstaked event
func (s *StateMachine) EventRedeemStakeBatchReceiptCreated(r *RedeemStakeBatchReceipt) lib.ErrorI {
	return s.addEvent(EventTypeRedeemStakeBatchReceiptCreated, &RedeemStakeBatchReceiptEvent{
		BatchId:         r.BatchId,
		RedeemedStake:   r.Original,
		StakeTokenValue: r.StakeTokenValue,
	})
}

func (s *StateMachine) EventNearLiquidityAdded(amount, balance lib.YoctoNear) lib.ErrorI {
	return s.addEvent(EventTypeNearLiquidityAdded, &NearLiquidityEvent{Amount: amount, Balance: balance})
}

func (s *StateMachine) EventEarningsDistributed(total, owner, pool lib.YoctoNear) lib.ErrorI {
	return s.addEvent(EventTypeEarningsDistributed, &EarningsEvent{Total: total, OwnerShare: owner, PoolShare: pool})
}

func (s *StateMachine) EventStakeTokenValueUpdated(v StakeTokenValue) lib.ErrorI {
	return s.addEvent(EventTypeStakeTokenValueUpdated, &v)
}

func (s *StateMachine) EventPendingWithdrawalCleared(id BatchId) lib.ErrorI {
	return s.addEvent(EventTypePendingWithdrawalCleared, &BatchEvent{BatchId: id})
}

func (s *StateMachine) EventLockCleared(side, from string, round uint64) lib.ErrorI {
	s.log.Warnf("%s lock cleared from %s (round %d)", side, from, round)
	return s.addEvent(EventTypeLockCleared, &LockClearedEvent{Side: side, From: from, Round: round})
}

func (s *StateMachine) EventNearWithdrawn(id string, amount lib.YoctoNear) lib.ErrorI {
	return s.addEvent(EventTypeNearWithdrawn, &NearWithdrawnEvent{AccountId: id, Amount: amount})
}

func (s *StateMachine) EventTaskFailed(task *Task, stage, reason string) lib.ErrorI {
	s.log.Errorf("The %s of %s task %d failed: %s", stage, task.Kind, task.Id, reason)
	return s.addEvent(EventTypeTaskFailed, &TaskFailedEvent{TaskId: task.Id, Kind: string(task.Kind), Stage: stage, Error: reason})
}

// addEvent() appends an event to the log and to its type index; events are logged once the operation commits
func (s *StateMachine) addEvent(eventType EventType, msg any) lib.ErrorI {
	data, err := lib.MarshalJSON(msg)
	if err != nil {
		return err
	}
	seq, err := s.nextSequence(eventSequenceKey())
	if err != nil {
		return err
	}
	contract, err := s.GetContract()
	if err != nil {
		return err
	}
	e := &Event{Sequence: seq, Type: eventType, Height: contract.BlockHeight + 1, Data: data}
	bz, err := lib.Marshal(e)
	if err != nil {
		return err
	}
	if err = s.Set(KeyForEvent(seq), bz); err != nil {
		return err
	}
	if err = s.Set(KeyForEventByType(eventType, seq), bz); err != nil {
		return err
	}
	s.pending = append(s.pending, e)
	return nil
}

// nextSequence() increments and returns the counter stored under key
func (s *StateMachine) nextSequence(key []byte) (uint64, lib.ErrorI) {
	bz, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	seq := lib.ParseUint64(bz) + 1
	return seq, s.Set(key, lib.FormatUint64(seq))
}

const EventsPageName = "events" // name for page of events

func init() {
	lib.RegisteredPageables[EventsPageName] = new(EventPage)
}

// EventPage is a pageable list of events
type EventPage []*Event

func (p *EventPage) New() lib.Pageable { return &EventPage{} }

// GetEventsPaginated() returns a page of events, newest first, optionally filtered by type
func (s *StateMachine) GetEventsPaginated(p lib.PageParams, eventType EventType) (page *lib.Page, err lib.ErrorI) {
	prefix := EventPrefix()
	if eventType != "" {
		prefix = EventByTypePrefix(eventType)
	}
	page, res := lib.NewPage(p, EventsPageName), make(EventPage, 0)
	err = page.Load(prefix, true, &res, s.Store(), func(_, b []byte) lib.ErrorI {
		e := new(Event)
		if er := lib.Unmarshal(b, e); er != nil {
			return er
		}
		res = append(res, e)
		return nil
	})
	return
}
