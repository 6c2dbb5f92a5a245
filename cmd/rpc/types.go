package rpc

import (
	"github.com/canopy-network/stakebatch/fsm"
	"github.com/canopy-network/stakebatch/lib"
)

// =====================================================
// Query Request Types
// =====================================================

type accountRequest struct {
	AccountId string `json:"accountId"`
}

type receiptRequest struct {
	BatchId fsm.BatchId `json:"batchId"`
}

type paginatedRequest struct {
	lib.PageParams
}

type eventsRequest struct {
	lib.PageParams
	Type fsm.EventType `json:"type,omitempty"`
}

// =====================================================
// Transaction Request Types
// =====================================================

// nearRequest moves NEAR on behalf of an account; All uses the entire balance and ignores Amount
type nearRequest struct {
	AccountId string        `json:"accountId"`
	Amount    lib.YoctoNear `json:"amount"`
	All       bool          `json:"all,omitempty"`
}

// stakeRequest moves STAKE on behalf of an account; All uses the entire balance and ignores Amount
type stakeRequest struct {
	AccountId string         `json:"accountId"`
	Amount    lib.YoctoStake `json:"amount"`
	All       bool           `json:"all,omitempty"`
}

type transferNearRequest struct {
	From   string        `json:"from"`
	To     string        `json:"to"`
	Amount lib.YoctoNear `json:"amount"`
}

type ftTransferRequest struct {
	From   string         `json:"from"`
	To     string         `json:"to"`
	Amount lib.YoctoStake `json:"amount"`
}

// =====================================================
// Admin Request Types
// =====================================================

type ownerRequest struct {
	Caller string        `json:"caller"`
	Amount lib.YoctoNear `json:"amount"`
	All    bool          `json:"all,omitempty"`
}

type transferOwnershipRequest struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"newOwner"`
}

type updateGasRequest struct {
	Caller string              `json:"caller"`
	Update lib.GasConfigUpdate `json:"update"`
	Force  bool                `json:"force,omitempty"`
}

type updateConfigRequest struct {
	Caller string                 `json:"caller"`
	Update lib.EngineConfigUpdate `json:"update"`
}

// =====================================================
// Response Types
// =====================================================

type batchIdResponse struct {
	BatchId fsm.BatchId `json:"batchId"`
}

type nearResponse struct {
	Amount lib.YoctoNear `json:"amount"`
}

type stakeResponse struct {
	Amount lib.YoctoStake `json:"amount"`
}

type okResponse struct {
	Ok bool `json:"ok"`
}

type ProcessResourceUsage struct {
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	CreateTime    string  `json:"createTime"`
	FDCount       uint64  `json:"fdCount"`
	ThreadCount   uint64  `json:"threadCount"`
	MemoryPercent float64 `json:"usedMemoryPercent"`
	CPUPercent    float64 `json:"usedCPUPercent"`
}

type SystemResourceUsage struct {
	// ram
	TotalRAM       uint64  `json:"totalRAM"`
	AvailableRAM   uint64  `json:"availableRAM"`
	UsedRAM        uint64  `json:"usedRAM"`
	UsedRAMPercent float64 `json:"usedRAMPercent"`
	// cpu
	UsedCPUPercent float64 `json:"usedCPUPercent"`
	// disk
	TotalDisk       uint64  `json:"totalDisk"`
	UsedDisk        uint64  `json:"usedDisk"`
	UsedDiskPercent float64 `json:"usedDiskPercent"`
}

type ResourceUsage struct {
	Process ProcessResourceUsage `json:"process"`
	System  SystemResourceUsage  `json:"system"`
}
