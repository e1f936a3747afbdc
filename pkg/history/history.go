// Package history provides the durable, append-only direct-message log.
//
// Messages are stored in BadgerDB under keys of the form
// "msg:{timestamp_padded}:{id}". The 19-digit zero-padded UnixNano timestamp
// makes lexicographical key order equal insertion order, so Tail is a single
// reverse prefix scan. The message ID disambiguates two appends landing on the
// same nanosecond.
package history

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/model"
)

const keyPrefix = "msg:"

// Log is the append-only ordered message log. There is no deletion or
// mutation API.
type Log interface {
	// Append durably stores a message. The message timestamp is bumped if
	// needed so timestamps never decrease in insertion order.
	Append(msg *model.Message) error

	// Tail returns the last n messages in append order (fewer if the log is
	// shorter).
	Tail(n int) ([]model.Message, error)

	// Close releases the underlying database.
	Close() error
}

// BadgerLog is the default Log implementation.
type BadgerLog struct {
	db *badger.DB

	mu       sync.Mutex
	lastNano int64 // last assigned timestamp, for monotonic ordering
}

// Open opens (or creates) a badger-backed log at the given directory.
func Open(dir string) (*BadgerLog, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	l := &BadgerLog{db: db}
	if err := l.seedLastNano(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// OpenInMemory opens a badger-backed log that lives entirely in memory.
// Used by tests and by deployments that only want history replay for the
// lifetime of the process.
func OpenInMemory() (*BadgerLog, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("history: open in-memory: %w", err)
	}
	return &BadgerLog{db: db}, nil
}

// seedLastNano reads the newest key so restarts keep timestamps monotonic.
func (l *BadgerLog) seedLastNano() error {
	return l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(seekEnd())
		if !it.ValidForPrefix([]byte(keyPrefix)) {
			return nil
		}
		var nano int64
		key := string(it.Item().Key())
		if _, err := fmt.Sscanf(key, keyPrefix+"%019d", &nano); err != nil {
			return fmt.Errorf("history: parse key %q: %w", key, err)
		}
		l.lastNano = nano
		return nil
	})
}

func seekEnd() []byte {
	return append([]byte(keyPrefix), []byte("9999999999999999999")...)
}

func messageKey(nano int64, id string) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", keyPrefix, nano, id))
}

// Append durably stores a message and returns once the write is committed.
func (l *BadgerLog) Append(msg *model.Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("history: append: %w", err)
	}

	l.mu.Lock()
	nano := msg.Timestamp.UnixNano()
	if nano <= l.lastNano {
		nano = l.lastNano + 1
		msg.Timestamp = time.Unix(0, nano).UTC()
	}
	l.lastNano = nano
	l.mu.Unlock()

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}
	err = l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(nano, msg.ID), value)
	})
	if err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	return nil
}

// Tail returns the last n messages in append order.
func (l *BadgerLog) Tail(n int) ([]model.Message, error) {
	if n <= 0 {
		return nil, nil
	}

	var newestFirst []model.Message
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(seekEnd()); it.ValidForPrefix(prefix); it.Next() {
			if len(newestFirst) == n {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var msg model.Message
				if err := json.Unmarshal(value, &msg); err != nil {
					return err
				}
				newestFirst = append(newestFirst, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("history: tail: %w", err)
	}

	// Reverse into append order
	for i, j := 0, len(newestFirst)-1; i < j; i, j = i+1, j-1 {
		newestFirst[i], newestFirst[j] = newestFirst[j], newestFirst[i]
	}
	return newestFirst, nil
}

// Close releases the underlying database.
func (l *BadgerLog) Close() error {
	return l.db.Close()
}

// Compile-time check: *BadgerLog implements Log.
var _ Log = (*BadgerLog)(nil)
