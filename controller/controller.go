package controller

import (
	"context"
	"sync"
	"time"

	"github.com/canopy-network/stakebatch/fsm"
	"github.com/canopy-network/stakebatch/lib"
	"github.com/canopy-network/stakebatch/venue"
	"golang.org/x/sync/errgroup"
)

// Controller acts as the 'manager' of the modules of the application
// - every operation on the state machine is serialized through its lock
// - a background worker executes the scheduled venue calls and feeds their outcome back
type Controller struct {
	FSM     *fsm.StateMachine
	Venue   venue.Venue
	Config  lib.Config
	Metrics *lib.Metrics

	db     lib.StoreI
	wake   chan struct{}      // signals the worker that new tasks may be scheduled
	cancel context.CancelFunc // stops the worker
	group  *errgroup.Group    // the worker goroutines
	log    lib.LoggerI
	sync.Mutex
}

// New() creates a new instance of a Controller, this is the entry point when initializing a settlement engine
func New(c lib.Config, db lib.StoreI, v venue.Venue, metrics *lib.Metrics, l lib.LoggerI) (*Controller, lib.ErrorI) {
	sm, err := fsm.New(c, db, metrics, l)
	if err != nil {
		return nil, err
	}
	return &Controller{
		FSM:     sm,
		Venue:   v,
		Config:  c,
		Metrics: metrics,
		db:      db,
		wake:    make(chan struct{}, 1),
		log:     l,
	}, nil
}

// Start() begins the Controller service
func (c *Controller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.group, ctx = errgroup.WithContext(ctx)
	c.group.Go(func() error { return c.runWorker(ctx) })
	c.log.Infof("Controller started with venue account %s", c.Config.VenueConfig.AccountId)
}

// Stop() terminates the Controller service; a task in flight is delivered before the store closes
func (c *Controller) Stop() {
	if c.cancel != nil {
		c.cancel()
		if err := c.group.Wait(); err != nil {
			c.log.Error(err.Error())
		}
	}
	c.Lock()
	defer c.Unlock()
	if err := c.db.Close(); err != nil {
		c.log.Error(err.Error())
	}
}

// Update() runs a mutating operation as the single writer and wakes the worker
func (c *Controller) Update(op func(sm *fsm.StateMachine) lib.ErrorI) lib.ErrorI {
	c.Lock()
	err := op(c.FSM)
	c.Unlock()
	if err == nil {
		c.notify()
	}
	return err
}

// View() runs a read only operation; reads are serialized with writes
func (c *Controller) View(op func(sm *fsm.StateMachine) lib.ErrorI) lib.ErrorI {
	c.Lock()
	defer c.Unlock()
	return op(c.FSM)
}

// notify() wakes the worker without blocking
func (c *Controller) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// pollInterval() is how long the worker sleeps when nothing wakes it
func (c *Controller) pollInterval() time.Duration {
	if c.Config.PollIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(c.Config.PollIntervalMS) * time.Millisecond
}
