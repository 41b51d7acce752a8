// Copyright 2025 Energinet DataHub A/S
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for the
// message archive.
//
// Two stores exist. The ArchiveStore is the object-store facade the
// ingestion pipeline pulls raw log blobs from and archives them back
// into. The RecordStore is the document store the parsed records are
// persisted into and the search engine queries.
//
// # Constructor Return Type Pattern
//
// Public constructors of implementation packages return these
// interfaces, not their concrete types:
//
//	store, err := badger.NewRecordStore(path)  // returns storage.RecordStore
//
// This keeps consumers decoupled from the backing store and lets tests
// substitute in-memory or stub implementations without modification.
//
// # Thread Safety
//
// Store implementations must be safe for concurrent use: the ingestion
// pipeline archives and persists items concurrently, sharing one client
// per store.
//
// # Continuation Tokens
//
// RecordStore queries are cursor-paginated. Continuation tokens are
// opaque strings round-tripped verbatim by callers; "" means the first
// page on the way in and no further pages on the way out.
package storage
