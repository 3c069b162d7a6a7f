// Package store persists chat channels, messages and profiles in
// BadgerDB. Message keys embed a zero-padded nanosecond timestamp so a
// prefix scan yields chronological order; a per-id index supports the
// bulk read-flag update.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/mediconnect/realtime/internal/domain"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrProfileNotFound = errors.New("profile not found")
)

type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store at dir. An empty dir opens an
// in-memory database, used by tests.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func channelKey(id domain.ChannelID) []byte { return []byte("chan:" + id) }
func profileKey(id domain.UserID) []byte    { return []byte("profile:" + id) }
func messageIndexKey(id string) []byte      { return []byte("msgid:" + id) }

// messageKey is "msg:{channel}:{timestamp_padded}:{id}". The 19-digit
// zero padding keeps lexicographic and chronological order aligned; the
// trailing id disambiguates same-nanosecond writes.
func messageKey(ch domain.ChannelID, at time.Time, id string) []byte {
	return fmt.Appendf(nil, "msg:%s:%019d:%s", ch, at.UnixNano(), id)
}

func (s *Store) CreateChannel(_ context.Context, participants []domain.UserID) (domain.Channel, error) {
	ch := domain.Channel{
		ID:           domain.ChannelID(uuid.NewString()),
		Participants: participants,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.put(channelKey(ch.ID), ch); err != nil {
		return domain.Channel{}, err
	}
	return ch, nil
}

func (s *Store) Channel(_ context.Context, id domain.ChannelID) (domain.Channel, error) {
	var ch domain.Channel
	err := s.get(channelKey(id), &ch)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Channel{}, ErrChannelNotFound
	}
	return ch, err
}

func (s *Store) SetLastMessage(ctx context.Context, id domain.ChannelID, messageID string) error {
	ch, err := s.Channel(ctx, id)
	if err != nil {
		return err
	}
	ch.LastMessageID = messageID
	return s.put(channelKey(id), ch)
}

func (s *Store) CreateMessage(_ context.Context, m domain.Message) error {
	key := messageKey(m.ChannelID, m.CreatedAt, m.ID)
	value, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(messageIndexKey(m.ID), key)
	})
}

// MessagesByChannel pages backwards through a channel's history, newest
// first. cursor is the opaque tail of the last key seen; nil starts from
// the newest message.
func (s *Store) MessagesByChannel(_ context.Context, id domain.ChannelID, cursor *string, limit int) ([]domain.Message, *string, error) {
	var messages []domain.Message
	var lastKey string

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := fmt.Appendf(nil, "msg:%s:", id)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		seekKey := append([]byte{}, prefix...)
		if cursor == nil {
			// Past the largest possible timestamp, then walk backwards.
			seekKey = append(seekKey, []byte("9999999999999999999")...)
		} else {
			seekKey = append(seekKey, []byte(*cursor)...)
		}
		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			err := item.Value(func(value []byte) error {
				var m domain.Message
				if err := json.Unmarshal(value, &m); err != nil {
					return err
				}
				messages = append(messages, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return messages, &lastKey, nil
}

// MarkRead flags the given messages as read at the given instant,
// skipping any authored by exclude and any already read. Returns the ids
// actually updated.
func (s *Store) MarkRead(_ context.Context, ids []string, exclude domain.UserID, at time.Time) ([]string, error) {
	var updated []string
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			item, err := txn.Get(messageIndexKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			key, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			msgItem, err := txn.Get(key)
			if err != nil {
				return err
			}
			var m domain.Message
			if err := msgItem.Value(func(value []byte) error {
				return json.Unmarshal(value, &m)
			}); err != nil {
				return err
			}
			if m.SenderID == exclude || m.IsRead {
				continue
			}
			m.IsRead = true
			readAt := at
			m.ReadAt = &readAt
			value, err := json.Marshal(m)
			if err != nil {
				return err
			}
			if err := txn.Set(key, value); err != nil {
				return err
			}
			updated = append(updated, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) Profile(_ context.Context, id domain.UserID) (domain.Profile, error) {
	var p domain.Profile
	err := s.get(profileKey(id), &p)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Profile{}, ErrProfileNotFound
	}
	return p, err
}

func (s *Store) SaveProfile(_ context.Context, p domain.Profile) error {
	return s.put(profileKey(p.ID), p)
}

func (s *Store) put(key []byte, v any) error {
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (s *Store) get(key []byte, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, v)
		})
	})
}
