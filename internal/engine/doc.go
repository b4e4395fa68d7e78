// Package engine contains the aging loop: the heartbeat of the crew ledger.
//
// Each tick runs two passes over one roster snapshot, in order:
//
//	ReconcileSystem  creates, removes and corrects records against the roster
//	AgingSystem      adds the birthdays elapsed since the previous tick
//
// Both hand threshold crossings and observed deaths to the DeathAdjudicator,
// the only code that moves a record from alive to dead.
package engine
