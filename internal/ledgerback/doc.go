// Package ledgerback provides the bundled implementations of the
// auditchain.Backend contract.
//
// Two implementations exist:
//   - MemoryBackend: in-process, for development and testing.
//   - FabricBackend: a stub for a permissioned distributed-ledger network;
//     it satisfies the full contract locally so the rest of the system is
//     exercised end to end without the network dependency.
//
// Which backend is wired in is decided once at startup from configuration,
// never re-evaluated per call.
package ledgerback
