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


// Package contextbuild assembles generation-ready context from an owner's
// activity records.
//
// The Builder combines semantically ranked hits, a recency top-up that
// never duplicates a ranked hit, the owner's profile snapshot, and a light
// keyword analysis of the prompt into one ContextBundle with a
// deterministic formatted rendering. Every data source is optional at
// runtime: failures are logged and the bundle degrades to whatever could
// be gathered, down to the empty string.
package contextbuild
