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
	"sort"

	"github.com/eucalyptus/calyptos/lib/storage"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/gravitational/trace"
	"github.com/pborman/uuid"
)

// CreateOperation journals a new phase run
func (b *backend) CreateOperation(op storage.Operation) (*storage.Operation, error) {
	if err := op.Check(); err != nil {
		return nil, trace.Wrap(err)
	}
	if op.ID == "" {
		op.ID = uuid.New()
	}
	if op.State == "" {
		op.State = storage.OperationStatePending
	}
	if op.Created.IsZero() {
		op.Created = b.Now().UTC()
	}
	if op.Updated.IsZero() {
		op.Updated = op.Created
	}
	err := b.createVal(b.operationKey(op.ID), op)
	if err != nil {
		if trace.IsAlreadyExists(err) {
			return nil, trace.AlreadyExists("operation(%v) already exists", op.ID)
		}
		return nil, trace.Wrap(err)
	}
	return &op, nil
}

// GetOperation returns the operation identified by operationID
func (b *backend) GetOperation(operationID string) (*storage.Operation, error) {
	if operationID == "" {
		return nil, trace.BadParameter("missing parameter OperationID")
	}
	if op, ok := b.cached(operationID); ok {
		return &op, nil
	}
	var op storage.Operation
	if err := b.getVal(b.operationKey(operationID), &op); err != nil {
		if trace.IsNotFound(err) {
			return nil, trace.NotFound("operation(%v) not found", operationID)
		}
		return nil, trace.Wrap(err)
	}
	normalize(&op)
	b.cache(op)
	return &op, nil
}

// GetOperations returns all operations, latest first
func (b *backend) GetOperations() ([]storage.Operation, error) {
	var out []storage.Operation
	err := b.forEach(b.operationKey(), func(id string, data []byte) error {
		var op storage.Operation
		if err := b.codec.DecodeFromBytes(data, &op); err != nil {
			return trace.Wrap(err, "operation(%v) is corrupted", id)
		}
		normalize(&op)
		b.cache(op)
		out = append(out, op)
		return nil
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Created.After(out[j].Created)
	})
	return out, nil
}

// UpdateOperation replaces an existing operation
func (b *backend) UpdateOperation(op storage.Operation) (*storage.Operation, error) {
	if err := op.Check(); err != nil {
		return nil, trace.Wrap(err)
	}
	if op.ID == "" {
		return nil, trace.BadParameter("missing operation ID")
	}
	op.Updated = b.Now().UTC()
	err := b.updateVal(b.operationKey(op.ID), op)
	if err != nil {
		if trace.IsNotFound(err) {
			return nil, trace.NotFound("operation(%v) not found", op.ID)
		}
		return nil, trace.Wrap(err)
	}
	b.evict(op.ID)
	return &op, nil
}

func (b *backend) operationKey(ids ...string) key {
	return append(key{rootP, operationsP}, ids...)
}

// cached returns the operation if it has completed and was seen before.
// Completed operations never change and are safe to cache
func (b *backend) cached(id string) (storage.Operation, bool) {
	b.completedMu.RLock()
	defer b.completedMu.RUnlock()
	op, ok := b.completed[id]
	return op, ok
}

func (b *backend) cache(op storage.Operation) {
	if !op.IsCompleted() {
		return
	}
	b.completedMu.Lock()
	b.completed[op.ID] = op
	b.completedMu.Unlock()
}

func (b *backend) evict(id string) {
	b.completedMu.Lock()
	delete(b.completed, id)
	b.completedMu.Unlock()
}

func normalize(op *storage.Operation) {
	utils.UTC(&op.Created)
	utils.UTC(&op.Updated)
	for i := range op.Steps {
		utils.UTC(&op.Steps[i].Started)
		utils.UTC(&op.Steps[i].Completed)
	}
}
