// Package notify keeps the local notification set consistent with the
// remote feed.
//
// Sync reads the local set, fetches the remote feed under a bounded timeout,
// reconciles every remote record through the pure Reconcile function and
// writes the result through the store. A remote record that is new and
// unread triggers exactly one external delivery; the delivery slot is
// claimed in the store, so restarts and repeated syncs never deliver twice.
//
// Remote failures never abort a sync: the caller gets the local list with
// SyncResult.RemoteErr set. Sync and mark-read for the same tenant are
// serialized. Each write checks the session generation kept in the store,
// so a Logout from any process discards in-flight work, and a Scheduler
// stops once its session has ended.
//
// ReadPolicy selects how the remote read flag is merged. RemoteWins copies
// it verbatim on every pass, so a read made offline can flip back to unread
// until the remote observes it. LocalWins keeps a locally read record read.
package notify
