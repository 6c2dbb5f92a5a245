package fsm

import (
	"github.com/canopy-network/stakebatch/lib"
)

/* Key.go contains prefix keys logic for the underlying store */

var (
	contractPrefix      = []byte{1}  // store key prefix for the contract aggregate
	accountPrefix       = []byte{2}  // store key prefix for registered accounts
	stakeBatchPrefix    = []byte{3}  // store key prefix for open stake batches
	redeemBatchPrefix   = []byte{4}  // store key prefix for open redeem stake batches
	stakeReceiptPrefix  = []byte{5}  // store key prefix for stake batch receipts
	redeemReceiptPrefix = []byte{6}  // store key prefix for redeem stake batch receipts
	taskPrefix          = []byte{7}  // store key prefix for scheduled venue calls
	eventPrefix         = []byte{8}  // store key prefix for the append-only event log
	paramsPrefix        = []byte{9}  // store key prefix for the engine and gas parameters
	eventByTypePrefix   = []byte{10} // store key prefix for the event log indexed by type
	sequencePrefix      = []byte{11} // store key prefix for the event and task counters
)

/*
- Iteration is avoided on the hot path: accounts are settled lazily when touched

- Length prefixed append is used to be able to easily separate the segments of a key

- BigEndianEncoding is used for ids to accommodate the 'lexicographical' sorting nature of the key-value database
*/

func ContractKey() []byte            { return lib.JoinLenPrefix(contractPrefix) }
func ParamsKey() []byte              { return lib.JoinLenPrefix(paramsPrefix) }
func AccountPrefix() []byte          { return lib.JoinLenPrefix(accountPrefix) }
func StakeBatchPrefix() []byte       { return lib.JoinLenPrefix(stakeBatchPrefix) }
func RedeemBatchPrefix() []byte      { return lib.JoinLenPrefix(redeemBatchPrefix) }
func StakeReceiptPrefix() []byte     { return lib.JoinLenPrefix(stakeReceiptPrefix) }
func RedeemReceiptPrefix() []byte    { return lib.JoinLenPrefix(redeemReceiptPrefix) }
func TaskPrefix() []byte             { return lib.JoinLenPrefix(taskPrefix) }
func EventPrefix() []byte            { return lib.JoinLenPrefix(eventPrefix) }
func KeyForAccount(id string) []byte { return lib.JoinLenPrefix(accountPrefix, []byte(id)) }
func KeyForStakeBatch(id BatchId) []byte {
	return lib.JoinLenPrefix(stakeBatchPrefix, lib.FormatUint64(uint64(id)))
}
func KeyForRedeemBatch(id BatchId) []byte {
	return lib.JoinLenPrefix(redeemBatchPrefix, lib.FormatUint64(uint64(id)))
}
func KeyForStakeReceipt(id BatchId) []byte {
	return lib.JoinLenPrefix(stakeReceiptPrefix, lib.FormatUint64(uint64(id)))
}
func KeyForRedeemReceipt(id BatchId) []byte {
	return lib.JoinLenPrefix(redeemReceiptPrefix, lib.FormatUint64(uint64(id)))
}
func KeyForTask(id uint64) []byte   { return lib.JoinLenPrefix(taskPrefix, lib.FormatUint64(id)) }
func KeyForEvent(seq uint64) []byte { return lib.JoinLenPrefix(eventPrefix, lib.FormatUint64(seq)) }
func EventByTypePrefix(t EventType) []byte {
	return lib.JoinLenPrefix(eventByTypePrefix, []byte(t))
}
func KeyForEventByType(t EventType, seq uint64) []byte {
	return lib.JoinLenPrefix(eventByTypePrefix, []byte(t), lib.FormatUint64(seq))
}
func eventSequenceKey() []byte { return lib.JoinLenPrefix(sequencePrefix, []byte("event")) }
func taskSequenceKey() []byte  { return lib.JoinLenPrefix(sequencePrefix, []byte("task")) }

// IdFromKey() extracts the trailing big endian id of an id keyed record
func IdFromKey(key []byte) uint64 {
	segments := lib.DecodeLengthPrefixed(key)
	return lib.ParseUint64(segments[len(segments)-1])
}
