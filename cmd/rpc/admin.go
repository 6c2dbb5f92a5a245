package rpc

import (
	"net/http"
	"os"
	"time"

	"github.com/canopy-network/stakebatch/fsm"
	"github.com/canopy-network/stakebatch/lib"
	"github.com/julienschmidt/httprouter"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// CollectEarnings books NEAR earned outside the staked balance
func (s *Server) CollectEarnings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.ownerTx(w, r, func(sm *fsm.StateMachine, req *ownerRequest) (any, lib.ErrorI) {
		return nearResponse{Amount: req.Amount}, sm.CollectEarnings(req.Caller, req.Amount)
	})
}

// OwnerStake deposits owner balance into the owner account's stake batch
func (s *Server) OwnerStake(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.ownerTx(w, r, func(sm *fsm.StateMachine, req *ownerRequest) (any, lib.ErrorI) {
		if req.All {
			amount, err := sm.StakeAllOwnerBalance(req.Caller)
			return nearResponse{Amount: amount}, err
		}
		return nearResponse{Amount: req.Amount}, sm.StakeOwnerBalance(req.Caller, req.Amount)
	})
}

// OwnerWithdraw pays out owner balance
func (s *Server) OwnerWithdraw(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.ownerTx(w, r, func(sm *fsm.StateMachine, req *ownerRequest) (any, lib.ErrorI) {
		if req.All {
			amount, err := sm.WithdrawAllOwnerBalance(req.Caller)
			return nearResponse{Amount: amount}, err
		}
		return nearResponse{Amount: req.Amount}, sm.WithdrawOwnerBalance(req.Caller, req.Amount)
	})
}

// TransferOwnership hands the contract to another registered account
func (s *Server) TransferOwnership(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(transferOwnershipRequest)
	if !unmarshal(w, r, req) {
		return
	}
	s.update(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		return okResponse{Ok: true}, sm.TransferOwnership(req.Caller, req.NewOwner)
	})
}

// ClearStakeLock resets a wedged stake round
func (s *Server) ClearStakeLock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.ownerTx(w, r, func(sm *fsm.StateMachine, req *ownerRequest) (any, lib.ErrorI) {
		return okResponse{Ok: true}, sm.ClearStakeLock(req.Caller)
	})
}

// ClearRedeemLock resets a wedged unstake round
func (s *Server) ClearRedeemLock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.ownerTx(w, r, func(sm *fsm.StateMachine, req *ownerRequest) (any, lib.ErrorI) {
		return okResponse{Ok: true}, sm.ClearRedeemLock(req.Caller)
	})
}

// UpdateGas merges new gas budgets and responds with the options in effect
func (s *Server) UpdateGas(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(updateGasRequest)
	if !unmarshal(w, r, req) {
		return
	}
	s.update(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		if err := sm.UpdateGasConfig(req.Caller, req.Update, req.Force); err != nil {
			return nil, err
		}
		return sm.GetParams(), nil
	})
}

// UpdateConfig merges new engine options and responds with the options in effect
func (s *Server) UpdateConfig(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := new(updateConfigRequest)
	if !unmarshal(w, r, req) {
		return
	}
	s.update(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) {
		if err := sm.UpdateConfig(req.Caller, req.Update); err != nil {
			return nil, err
		}
		return sm.GetParams(), nil
	})
}

// ResourceUsage responds with the process and host resource usage
func (s *Server) ResourceUsage(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	usage, err := resourceUsage()
	if err != nil {
		write(w, errorResponse{Kind: lib.KindOther, Code: lib.NoCode, Module: lib.RPCModule, Msg: err.Error()}, http.StatusInternalServerError)
		return
	}
	write(w, usage, http.StatusOK)
}

func resourceUsage() (*ResourceUsage, error) {
	vm, err := mem.VirtualMemory() // os memory
	if err != nil {
		return nil, err
	}
	cp, err := cpu.Percent(0, false) // os cpu percent
	if err != nil {
		return nil, err
	}
	d, err := disk.Usage("/") // os disk
	if err != nil {
		return nil, err
	}
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	name, err := p.Name()
	if err != nil {
		return nil, err
	}
	status, err := p.Status()
	if err != nil {
		return nil, err
	}
	created, err := p.CreateTime()
	if err != nil {
		return nil, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return nil, err
	}
	memPercent, err := p.MemoryPercent()
	if err != nil {
		return nil, err
	}
	threads, err := p.NumThreads()
	if err != nil {
		return nil, err
	}
	// file descriptors are not reported on every platform
	fds, _ := p.NumFDs()
	usage := &ResourceUsage{
		Process: ProcessResourceUsage{
			Name:          name,
			CreateTime:    time.UnixMilli(created).Format(time.RFC822),
			FDCount:       uint64(fds),
			ThreadCount:   uint64(threads),
			MemoryPercent: float64(memPercent),
			CPUPercent:    cpuPercent,
		},
		System: SystemResourceUsage{
			TotalRAM:        vm.Total,
			AvailableRAM:    vm.Available,
			UsedRAM:         vm.Used,
			UsedRAMPercent:  vm.UsedPercent,
			TotalDisk:       d.Total,
			UsedDisk:        d.Used,
			UsedDiskPercent: d.UsedPercent,
		},
	}
	if len(status) != 0 {
		usage.Process.Status = status[0]
	}
	if len(cp) != 0 {
		usage.System.UsedCPUPercent = cp[0]
	}
	return usage, nil
}

// ownerTx() is a helper for owner operations
func (s *Server) ownerTx(w http.ResponseWriter, r *http.Request, callback func(sm *fsm.StateMachine, req *ownerRequest) (any, lib.ErrorI)) {
	req := new(ownerRequest)
	if !unmarshal(w, r, req) {
		return
	}
	s.update(w, func(sm *fsm.StateMachine) (any, lib.ErrorI) { return callback(sm, req) })
}
