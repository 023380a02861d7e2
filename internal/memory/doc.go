// Package memory provides the memory/log collaborator used by ritual
// handlers: event logging, shelving and retrieving contexts, archiving and
// eternal-memory reports, and substring queries over stored entries.
//
// A Memory is explicitly constructed over a Backend and passed to the
// engine; there is no process-wide store. Three backends are provided:
//   - MapBackend: in-process, ephemeral (default)
//   - SQLiteBackend: durable file storage (WAL mode)
//   - RedisBackend: shared storage with a key prefix
//
// All backends return entries in insertion order so query results are
// deterministic.
package memory
