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


// Package search provides similarity search over embedded activity records.
//
// The Engine type tries the store's native vector operator first and, when
// the store reports it unavailable or failing, falls back to a bounded
// client-side scan that scores candidates concurrently. Both paths apply
// the same similarity threshold and produce the same ranking, so callers
// never need to know which path served them.
package search
