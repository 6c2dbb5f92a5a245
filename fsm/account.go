package fsm

import (
	"regexp"

	"github.com/canopy-network/stakebatch/lib"
)

// Account is a registered user of the engine
// the four batch references are the account's claims on open or completed contract batches
type Account struct {
	Id                   string            `json:"id"`
	StorageEscrow        lib.YoctoNear     `json:"storageEscrow"`
	Near                 lib.YoctoNear     `json:"near"`
	Stake                lib.YoctoStake    `json:"stake"`
	StakeBatch           *StakeBatch       `json:"stakeBatch,omitempty" rlp:"nil"`
	NextStakeBatch       *StakeBatch       `json:"nextStakeBatch,omitempty" rlp:"nil"`
	RedeemStakeBatch     *RedeemStakeBatch `json:"redeemStakeBatch,omitempty" rlp:"nil"`
	NextRedeemStakeBatch *RedeemStakeBatch `json:"nextRedeemStakeBatch,omitempty" rlp:"nil"`
}

// IsEmpty() is true when the account holds no funds and no batch references
func (a *Account) IsEmpty() bool {
	return a.Near.IsZero() && a.Stake.IsZero() && a.StakeBatch == nil && a.NextStakeBatch == nil &&
		a.RedeemStakeBatch == nil && a.NextRedeemStakeBatch == nil
}

// accountIdPattern follows the NEAR account id rules
var accountIdPattern = regexp.MustCompile(`^(([a-z\d]+[-_])*[a-z\d]+\.)*([a-z\d]+[-_])*[a-z\d]+$`)

// ValidateAccountId() checks the length and the character set of an account id
func ValidateAccountId(id string) lib.ErrorI {
	if len(id) < 2 || len(id) > 64 || !accountIdPattern.MatchString(id) {
		return ErrInvalidAccountId(id)
	}
	return nil
}

// GetAccount() returns a registered account or ErrAccountNotRegistered
func (s *StateMachine) GetAccount(id string) (*Account, lib.ErrorI) {
	if err := ValidateAccountId(id); err != nil {
		return nil, err
	}
	bz, err := s.Get(KeyForAccount(id))
	if err != nil {
		return nil, err
	}
	if bz == nil {
		return nil, ErrAccountNotRegistered(id)
	}
	return s.unmarshalAccount(bz)
}

// AccountRegistered() is true if the account exists
func (s *StateMachine) AccountRegistered(id string) (bool, lib.ErrorI) {
	if err := ValidateAccountId(id); err != nil {
		return false, err
	}
	bz, err := s.Get(KeyForAccount(id))
	return bz != nil, err
}

// SetAccount() saves an account
func (s *StateMachine) SetAccount(a *Account) lib.ErrorI {
	return s.setRecord(KeyForAccount(a.Id), a)
}

// GetAccounts() returns every registered account
func (s *StateMachine) GetAccounts() (result []*Account, err lib.ErrorI) {
	err = s.IterateAndExecute(AccountPrefix(), func(_, value []byte) lib.ErrorI {
		a, e := s.unmarshalAccount(value)
		if e != nil {
			return e
		}
		result = append(result, a)
		return nil
	})
	return
}

// GetAccountsPaginated() returns a page of registered accounts in id order
func (s *StateMachine) GetAccountsPaginated(p lib.PageParams) (page *lib.Page, err lib.ErrorI) {
	page, res := lib.NewPage(p, AccountsPageName), make(AccountPage, 0)
	err = page.Load(AccountPrefix(), false, &res, s.Store(), func(_, b []byte) lib.ErrorI {
		a, e := s.unmarshalAccount(b)
		if e == nil {
			res = append(res, a)
		}
		return e
	})
	return
}

const AccountsPageName = "accounts" // name for page of accounts

func init() {
	lib.RegisteredPageables[AccountsPageName] = new(AccountPage)
}

// AccountPage is a pageable list of accounts
type AccountPage []*Account

func (p *AccountPage) New() lib.Pageable { return &AccountPage{} }

// TotalRegisteredAccounts() is the number of registered accounts
func (s *StateMachine) TotalRegisteredAccounts() (uint64, lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return 0, err
	}
	return c.RegisteredAccounts, nil
}

// RegisterAccount() creates an account against the storage escrow; the surplus deposit is refunded
func (s *StateMachine) RegisterAccount(id string, deposit lib.YoctoNear) (refund lib.YoctoNear, err lib.ErrorI) {
	err = s.atomic(func() lib.ErrorI {
		registered, e := s.AccountRegistered(id)
		if e != nil {
			return e
		}
		if registered {
			return ErrAccountAlreadyRegistered(id)
		}
		escrow, e := s.Config.StorageEscrow()
		if e != nil {
			return e
		}
		if deposit.LT(escrow) {
			return ErrInsufficientEscrow(escrow)
		}
		c, e := s.GetContract()
		if e != nil {
			return e
		}
		if c.TotalAccountStorageEscrow, e = c.TotalAccountStorageEscrow.Add(escrow); e != nil {
			return e
		}
		c.RegisteredAccounts++
		refund = deposit.SaturatingSub(escrow)
		s.log.Debugf("Registered account %s with escrow %s", id, escrow)
		return s.save(c, &Account{Id: id, StorageEscrow: escrow})
	})
	return
}

// UnregisterAccount() deletes an account that holds nothing after claiming and returns its escrow
func (s *StateMachine) UnregisterAccount(id string) (escrow lib.YoctoNear, err lib.ErrorI) {
	err = s.atomic(func() lib.ErrorI {
		c, a, e := s.loadClaimed(id)
		if e != nil {
			return e
		}
		if !a.IsEmpty() {
			return ErrAccountNotEmpty()
		}
		escrow = a.StorageEscrow
		if c.TotalAccountStorageEscrow, e = c.TotalAccountStorageEscrow.Sub(escrow); e != nil {
			return e
		}
		c.RegisteredAccounts--
		if e = s.Delete(KeyForAccount(id)); e != nil {
			return e
		}
		return s.SetContract(c)
	})
	return
}

// loadClaimed() loads the contract and a registered account with its receipts settled
// the caller persists both through save()
func (s *StateMachine) loadClaimed(id string) (*ContractState, *Account, lib.ErrorI) {
	c, err := s.GetContract()
	if err != nil {
		return nil, nil, err
	}
	a, err := s.GetAccount(id)
	if err != nil {
		return nil, nil, err
	}
	if err = s.claimReceiptFunds(c, a); err != nil {
		return nil, nil, err
	}
	return c, a, nil
}

// save() persists the contract and the accounts
func (s *StateMachine) save(c *ContractState, accounts ...*Account) lib.ErrorI {
	for _, a := range accounts {
		if err := s.SetAccount(a); err != nil {
			return err
		}
	}
	return s.SetContract(c)
}

func (s *StateMachine) unmarshalAccount(bz []byte) (*Account, lib.ErrorI) {
	a := new(Account)
	if err := lib.Unmarshal(bz, a); err != nil {
		return nil, err
	}
	return a, nil
}
