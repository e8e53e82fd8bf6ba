// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package audit records authentication and voting events.

Components publish to a Bus that is constructed once in main and passed
explicitly; there is no global hook registry:

	bus := audit.NewBus(logger, audit.NewSlogSink(logger))
	if rdb != nil {
		bus.Add(audit.NewRedisSink(rdb, cfg.AuditRedisKey, 0))
	}
	bus.Publish(ctx, audit.Event{Kind: audit.KindLogin, Actor: "alice", IP: ip})

# Sinks

  - SlogSink logs login, logout and vote at info and failed logins at warn.
  - RedisSink LPUSHes the JSON event and LTRIMs the list in one MULTI.
  - Recorder keeps events in memory for tests.

A sink error is logged by the Bus and otherwise ignored, so a broken sink
cannot fail a login or a vote.
*/
package audit
