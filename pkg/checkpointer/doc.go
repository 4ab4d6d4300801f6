/*
Package checkpointer coordinates saving and restoring the state of many
independent subsystems as one checkpoint.

# Overview

Each subsystem registers a kind with three callbacks: produce returns its
current state, apply restores it, and reset returns it to defaults. The
Manager collects every produced fragment into one envelope, encodes it,
encrypts it, and writes it to a single storage slot. Load reverses the
pipeline and routes each fragment back to the apply callback of its kind.

A failing callback never takes the rest of the checkpoint down with it.
Errors and panics are caught per kind, logged, and reported, and every
other kind proceeds normally.

# Basic Usage

	st, err := store.NewFileStore("./saves")
	if err != nil {
	    log.Fatal(err)
	}
	mgr := checkpointer.New(st, checkpointer.WithLogger(logger))

	err = checkpointer.Register(mgr, "Inventory",
	    func() (*Inventory, error) { return &inv, nil },
	    func(v Inventory) error { inv = v; return nil },
	    func() error { inv = Inventory{}; return nil },
	)

	report, err := mgr.Save(ctx)
	// ...
	report, err = mgr.Load(ctx)

# Load Outcomes

Load never fails because a checkpoint is missing or unreadable:

  - No checkpoint: every reset callback runs (OutcomeColdStart)
  - Corrupt checkpoint or wrong key: every reset callback runs (OutcomeRecovered)
  - Valid checkpoint: each fragment is applied (OutcomeLoaded)
  - Unknown kind in the checkpoint: skipped with a warning

Load returns an error only when storage itself could not be read. State is
reset first, so callers can continue with defaults.

# Blocking and Async Forms

Save and Load block until storage I/O completes. SaveAsync and LoadAsync
run the same steps with storage I/O on a background goroutine and deliver
the result on a channel. SaveAsync calls produce callbacks before it
returns, so the snapshot reflects state at the time of the call. LoadAsync
calls apply callbacks on the background goroutine.

# Concurrency

A Manager runs one operation at a time. Callers must not start Save, Load,
or Reset while another is in flight on the same Manager, and must not point
two Managers at the same slot.
*/
package checkpointer
