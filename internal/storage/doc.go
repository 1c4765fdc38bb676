// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage keeps the local journal of the vaulthub client.
//
// The journal is a small SQLite database recording what the client decided
// and told the user: guard decisions, forced logouts, logins and notices.
// It is append-only and pruned to a fixed number of entries.
//
// # Usage
//
//	j, err := storage.Open(storage.Options{Path: path, MaxEntries: 500})
//	_, err = j.Record(ctx, storage.Event{Kind: storage.KindNavigation, Route: "/vault"})
//	events, err := j.Recent(ctx, storage.Query{Limit: 20})
//
// # Storage Location
//
// The database lives at ~/.vaulthub/journal.db unless configured otherwise.
package storage
