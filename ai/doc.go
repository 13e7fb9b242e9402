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


// Package ai provides abstractions for the embedding services used in Recall.
//
// This package defines the Embedder interface for converting text into
// vector embeddings, together with the task-type vocabulary that keeps
// document and query embeddings apart. It follows the dependency inversion
// principle: the orchestrator, search engine, and context builder depend on
// these abstractions rather than on a concrete provider.
//
// # Implementation Packages
//
// The ai package includes two implementation sub-packages:
//
//   - ai/openai: Production implementation for OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Task Types
//
// Retrieval-tuned embedding models place documents and search queries in
// slightly different sub-spaces. Callers must embed stored records with
// TaskDocument and search queries with TaskQuery; mixing the two degrades
// ranking quality silently. EmbedQuery exists so call sites cannot get this
// wrong by accident.
//
// # Normalization
//
// Every vector returned by an Embedder implementation is unit-normalized
// (L2 norm of 1), regardless of whether the provider already normalizes.
// This makes a plain dot product equal to cosine similarity everywhere
// downstream. A degenerate zero vector is passed through unchanged rather
// than divided by zero.
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewEmbedder) return the ai.Embedder INTERFACE
// to enforce abstraction. Test utility constructors (mock.NewMockEmbedder)
// return CONCRETE types to enable behavior injection and call assertions.
package ai
