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


package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the types the embedded storage backend
// persists. The set is small enough that codegen would cost more than it
// saves; the layout mirrors the field order of the structs.
//
// Timestamps are stored as Unix microseconds.

var (
	// IDMUS serializes ID values.
	IDMUS = idMUS{}
	// RecordMUS serializes Record values.
	RecordMUS = recordMUS{}
	// OwnerProfileMUS serializes OwnerProfile values.
	OwnerProfileMUS = ownerProfileMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(id ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(id), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(id ID) int {
	return varint.Uint64.Size(uint64(id))
}

type recordMUS struct{}

func (recordMUS) Marshal(r Record, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(r.Id), bs)
	n += ord.String.Marshal(r.OwnerID, bs[n:])
	n += ord.String.Marshal(r.SourceRef, bs[n:])
	n += ord.String.Marshal(r.Text, bs[n:])
	n += ord.String.Marshal(r.Category, bs[n:])
	n += varint.Int64.Marshal(r.CreatedAt.UnixMicro(), bs[n:])
	n += marshalVector(r.Vector, bs[n:])
	return n
}

func (recordMUS) Unmarshal(bs []byte) (r Record, n int, err error) {
	var (
		id      uint64
		created int64
		n1      int
	)
	if id, n, err = varint.Uint64.Unmarshal(bs); err != nil {
		return
	}
	r.Id = ID(id)
	if r.OwnerID, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if r.SourceRef, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if r.Text, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if r.Category, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	if created, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	r.CreatedAt = time.UnixMicro(created).UTC()
	if r.Vector, n1, err = unmarshalVector(bs[n:]); err != nil {
		return r, n + n1, err
	}
	n += n1
	return r, n, nil
}

func (recordMUS) Size(r Record) int {
	return varint.Uint64.Size(uint64(r.Id)) +
		ord.String.Size(r.OwnerID) +
		ord.String.Size(r.SourceRef) +
		ord.String.Size(r.Text) +
		ord.String.Size(r.Category) +
		varint.Int64.Size(r.CreatedAt.UnixMicro()) +
		sizeVector(r.Vector)
}

type ownerProfileMUS struct{}

func (ownerProfileMUS) Marshal(p OwnerProfile, bs []byte) (n int) {
	n = ord.String.Marshal(p.OwnerID, bs)
	n += marshalStrings(p.Projects, bs[n:])
	n += marshalStrings(p.Tags, bs[n:])
	n += marshalStrings(p.FocusAreas, bs[n:])
	n += varint.Int64.Marshal(p.UpdatedAt.UnixMicro(), bs[n:])
	return n
}

func (ownerProfileMUS) Unmarshal(bs []byte) (p OwnerProfile, n int, err error) {
	var (
		updated int64
		n1      int
	)
	if p.OwnerID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if p.Projects, n1, err = unmarshalStrings(bs[n:]); err != nil {
		return p, n + n1, err
	}
	n += n1
	if p.Tags, n1, err = unmarshalStrings(bs[n:]); err != nil {
		return p, n + n1, err
	}
	n += n1
	if p.FocusAreas, n1, err = unmarshalStrings(bs[n:]); err != nil {
		return p, n + n1, err
	}
	n += n1
	if updated, n1, err = varint.Int64.Unmarshal(bs[n:]); err != nil {
		return p, n + n1, err
	}
	n += n1
	p.UpdatedAt = time.UnixMicro(updated).UTC()
	return p, n, nil
}

func (ownerProfileMUS) Size(p OwnerProfile) int {
	return ord.String.Size(p.OwnerID) +
		sizeStrings(p.Projects) +
		sizeStrings(p.Tags) +
		sizeStrings(p.FocusAreas) +
		varint.Int64.Size(p.UpdatedAt.UnixMicro())
}

// length-prefixed []float32

func marshalVector(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	v = make([]float32, length)
	var n1 int
	for i := 0; i < length; i++ {
		if v[i], n1, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
			return nil, n + n1, err
		}
		n += n1
	}
	return v, n, nil
}

func sizeVector(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

// length-prefixed []string

func marshalStrings(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStrings(bs []byte) (v []string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil || length == 0 {
		return nil, n, err
	}
	v = make([]string, length)
	var n1 int
	for i := 0; i < length; i++ {
		if v[i], n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
			return nil, n + n1, err
		}
		n += n1
	}
	return v, n, nil
}

func sizeStrings(v []string) int {
	size := varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}
