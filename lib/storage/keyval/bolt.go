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
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/eucalyptus/calyptos/lib/defaults"
	"github.com/eucalyptus/calyptos/lib/storage"
	"github.com/eucalyptus/calyptos/lib/utils"

	"github.com/boltdb/bolt"
	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// NewBolt returns new BoltDB-backed journal
func NewBolt(cfg BoltConfig) (storage.Backend, error) {
	err := cfg.CheckAndSetDefaults()
	if err != nil {
		return nil, trace.Wrap(err)
	}
	engine, err := newBolt(cfg)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &backend{
		Clock:     cfg.Clock,
		kvengine:  engine,
		codec:     &jsonCodec{},
		completed: make(map[string]storage.Operation),
	}, nil
}

// BoltConfig configures the journal database
type BoltConfig struct {
	// Path is the path to the journal file
	Path string
	// Clock stamps operations
	Clock clockwork.Clock
	// Readonly opens the journal for reading only, e.g. to display history
	// while another deployer holds the journal open
	Readonly bool
	// Timeout bounds the wait for the file lock held by another deployer.
	// Defaults to defaults.DBOpenTimeout
	Timeout time.Duration
}

// CheckAndSetDefaults validates this configuration and sets defaults
func (b *BoltConfig) CheckAndSetDefaults() error {
	if b.Path == "" {
		return trace.BadParameter("missing Path parameter")
	}
	path, err := filepath.Abs(b.Path)
	if err != nil {
		return trace.Wrap(err, "expected a valid path")
	}
	dir := filepath.Dir(path)
	s, err := os.Stat(dir)
	if err != nil {
		return trace.ConvertSystemError(err)
	}
	if !s.IsDir() {
		return trace.BadParameter("path '%v' should be a valid directory", dir)
	}
	if b.Timeout == 0 {
		b.Timeout = defaults.DBOpenTimeout
	}
	if b.Clock == nil {
		b.Clock = clockwork.NewRealClock()
	}
	return nil
}

// blt is a BoltDB-backend engine
type blt struct {
	sync.Mutex
	logrus.FieldLogger

	db   *bolt.DB
	path string
}

// newBolt returns a new instance of BoltDB backend
func newBolt(cfg BoltConfig) (*blt, error) {
	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	b := &blt{
		path: path,
		FieldLogger: logrus.WithFields(logrus.Fields{
			trace.Component: "boltdb",
			"path":          path,
		}),
	}

	// When opening bolt in read-only mode, make sure bolt properly initializes
	// the database file in case no database file exists before applying
	// read-only mode
	if cfg.Readonly {
		err := b.initDatafile(path)
		if err != nil {
			return nil, trace.Wrap(err)
		}
	}

	err = b.open(cfg.Readonly, cfg.Timeout)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	return b, nil
}

func (b *blt) open(readonly bool, timeout time.Duration) error {
	b.Lock()
	defer b.Unlock()
	if b.db != nil {
		return trace.AlreadyExists("database %v is already open", b.path)
	}
	db, err := bolt.Open(b.path, defaults.PrivateFileMask, &bolt.Options{
		Timeout:  timeout,
		ReadOnly: readonly,
	})
	if err != nil {
		if err == bolt.ErrTimeout {
			return trace.ConnectionProblem(err,
				"database %v is locked, is another deployer running?", b.path)
		}
		// bolt needs mmap so when running on a filesystem that doesn't support
		// it, the mmap call fails with errno == "invalid value"
		if err == syscall.EINVAL {
			return utils.NewUnsupportedFilesystemError(err, filepath.Dir(b.path))
		}
		return trace.Wrap(err)
	}
	b.db = db
	return nil
}

func (b *blt) initDatafile(path string) error {
	_, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		return trace.ConvertSystemError(err)
	}
	if os.IsNotExist(err) {
		db, err := bolt.Open(path, defaults.PrivateFileMask, &bolt.Options{
			Timeout: defaults.DBOpenTimeout,
		})
		if err != nil {
			return trace.Wrap(err)
		}
		defer db.Close()
		b.Debug("Initialized datafile.")
	}
	return nil
}

func (b *blt) put(k key, data []byte, mode putMode) error {
	buckets, name := k.split()
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := b.bucket(tx, buckets, mode == insertMode)
		if err != nil {
			return trace.Wrap(err)
		}
		exists := bkt.Get([]byte(name)) != nil
		switch {
		case mode == insertMode && exists:
			return trace.AlreadyExists("%q already exists", name)
		case mode == replaceMode && !exists:
			return trace.NotFound("%q not found", name)
		}
		return trace.Wrap(bkt.Put([]byte(name), data))
	})
}

func (b *blt) get(k key) (data []byte, err error) {
	buckets, name := k.split()
	err = b.db.View(func(tx *bolt.Tx) error {
		bkt, err := b.bucket(tx, buckets, false)
		if err != nil {
			return trace.Wrap(err)
		}
		value := bkt.Get([]byte(name))
		if value == nil {
			return trace.NotFound("%v %q not found", buckets, name)
		}
		// values are only valid for the lifetime of the transaction
		data = append([]byte(nil), value...)
		return nil
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return data, nil
}

func (b *blt) forEach(buckets key, fn func(name string, data []byte) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		bkt, err := b.bucket(tx, buckets, false)
		if err != nil {
			if trace.IsNotFound(err) {
				return nil
			}
			return trace.Wrap(err)
		}
		return bkt.ForEach(func(k, v []byte) error {
			if v == nil {
				// nested bucket
				return nil
			}
			return fn(string(k), v)
		})
	})
}

// bucket returns the nested bucket at path, creating missing buckets
// if create is set. Buckets cannot be created in read-only transactions
func (b *blt) bucket(tx *bolt.Tx, path []string, create bool) (*bolt.Bucket, error) {
	if len(path) == 0 {
		return nil, trace.BadParameter("missing bucket path")
	}
	var bkt *bolt.Bucket
	for i, name := range path {
		var next *bolt.Bucket
		if i == 0 {
			next = tx.Bucket([]byte(name))
		} else {
			next = bkt.Bucket([]byte(name))
		}
		if next == nil && create {
			var err error
			if i == 0 {
				next, err = tx.CreateBucket([]byte(name))
			} else {
				next, err = bkt.CreateBucket([]byte(name))
			}
			if err != nil {
				return nil, trace.Wrap(boltErr(err))
			}
		}
		if next == nil {
			return nil, trace.NotFound("bucket %v not found", path[:i+1])
		}
		bkt = next
	}
	return bkt, nil
}

// Close closes the backend resources
func (b *blt) Close() error {
	b.Lock()
	defer b.Unlock()
	if b.db == nil {
		return trace.AlreadyExists("database %v is already closed", b.path)
	}
	err := b.db.Close()
	if err != nil {
		return trace.Wrap(err)
	}
	b.db = nil
	return nil
}

func boltErr(err error) error {
	if err == bolt.ErrBucketNotFound {
		return trace.NotFound(err.Error())
	}
	if err == bolt.ErrBucketExists {
		return trace.AlreadyExists(err.Error())
	}
	return err
}
