// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine owns the conversation and drives each chat exchange.
//
// The Controller is the single owner of the conversation and the attachment
// registry. Hosts issue commands (SubmitText, SubmitFile, Clear) and observe
// read-only snapshots through Subscribe.
//
// # State Machine
//
//	Idle --SubmitText/SubmitFile--> Sending --reply or failure--> Idle
//	(any) --Clear--> Idle
//
// Only one exchange may be in flight. A submit while Sending returns ErrBusy
// and changes nothing. Failed exchanges never leave the controller stuck:
// they settle with a fixed assistant message describing the problem.
//
// # Persistence
//
// Every mutation queues a write of the affected key. A single writer
// goroutine applies the queue in order, so an older snapshot can never
// overwrite a newer one. Write failures are logged and counted; the
// conversation keeps running from memory.
//
// # Usage
//
//	ctrl, err := engine.New(engine.Options{
//	    Store:     kv,
//	    Completer: cloud.NewGateway(apiKey),
//	})
//	defer ctrl.Close()
//
//	updates, cancel := ctrl.Subscribe()
//	defer cancel()
//
//	if err := ctrl.SubmitText(ctx, "hello"); err != nil {
//	    var verr *engine.ValidationError
//	    if errors.As(err, &verr) { ... }
//	}
package engine
