// Package database owns the SQLite file backing the bridge: the
// mapping table and the audit log.
//
// The connection runs in WAL mode so API reads do not block behind
// writes, with a busy timeout instead of immediate lock errors, and
// the file is kept owner-only. Schema migrations are embedded .up.sql
// files applied forward-only at startup:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive: new columns take DEFAULT values so an older
// binary can still read a newer file. The .down.sql companions are for
// hand rollbacks during development, the bridge never runs them.
package database
