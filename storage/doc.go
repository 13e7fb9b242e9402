// Copyright 2026 Poiesic Systems
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


// Package storage provides the storage abstraction layer for recall.
//
// This package defines repository interfaces that decouple storage
// implementation from business logic. It allows for different storage
// backends (PostgreSQL with pgvector, BadgerDB, in-memory) to be used
// interchangeably.
//
// # Constructor Return Type Pattern
//
// This package follows a strict "return interface" pattern for all public
// constructors to enforce abstraction and enable multiple storage backend
// implementations:
//
//	store, err := badger.NewRecordStore(path)  // returns storage.RecordStore
//
// Internal package constructors may return concrete types since they're only
// used within the implementation package.
//
// # Owner Scoping
//
// Every operation takes an owner id and touches only that owner's rows.
// Cross-owner reads are impossible through these interfaces by construction;
// there is deliberately no "all owners" query surface.
//
// # Store-Side Similarity
//
// RecordStore.FindSimilar exposes a backend's native vector ranking operator
// when one exists (pgvector's cosine distance). Backends without one return
// ErrSearchUnavailable, which the search engine treats as the signal to run
// its in-process fallback scan. The fallback is mandatory, not optional: a
// deployment without the vector extension must still be able to search.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support concurrent
// access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and timeout
// support.
package storage
