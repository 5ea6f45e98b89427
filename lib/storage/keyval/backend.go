/*
Copyright 2020 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


package keyval

import (
	"encoding/json"
	"sync"

	"github.com/eucalyptus/calyptos/lib/storage"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

// backend implements the journal on top of a key value engine
type backend struct {
	clockwork.Clock
	kvengine
	codec Codec

	// completed caches operations in a terminal state
	completed   map[string]storage.Operation
	completedMu sync.RWMutex
}

func (b *backend) Close() error {
	return b.kvengine.Close()
}

func (b *backend) createVal(k key, val interface{}) error {
	data, err := b.codec.EncodeToBytes(val)
	if err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(b.put(k, data, insertMode))
}

func (b *backend) updateVal(k key, val interface{}) error {
	data, err := b.codec.EncodeToBytes(val)
	if err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(b.put(k, data, replaceMode))
}

func (b *backend) getVal(k key, out interface{}) error {
	data, err := b.get(k)
	if err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(b.codec.DecodeFromBytes(data, out))
}

// Codec is responsible for encoding/decoding objects
type Codec interface {
	EncodeToBytes(val interface{}) ([]byte, error)
	DecodeFromBytes(val []byte, in interface{}) error
}

// jsonCodec stores values as plain JSON
type jsonCodec struct{}

func (*jsonCodec) EncodeToBytes(val interface{}) ([]byte, error) {
	data, err := json.Marshal(val)
	if err != nil {
		return nil, trace.Wrap(err, "failed to encode object")
	}
	return data, nil
}

func (*jsonCodec) DecodeFromBytes(data []byte, in interface{}) error {
	if err := json.Unmarshal(data, in); err != nil {
		log.WithError(err).Warnf("Failed to decode %s.", data)
		return trace.Wrap(err)
	}
	return nil
}
