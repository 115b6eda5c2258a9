package channeldb

import (
	"encoding/json"
	"fmt"

	bbolt "go.etcd.io/bbolt"
	"github.com/litexio/scnode/wagererr"
)

// PutChannel persists c, keyed by c.ChannelID, using the same JSON codec the
// wire package uses for messages crossing the network - one encoding for
// everything that crosses a boundary, on disk or on the wire. Callers must
// complete this before emitting the outgoing message (or acking the
// incoming one) that produced the new state.
func (d *DB) PutChannel(c *Channel) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("unable to encode channel: %w", err)
	}

	return d.bolt.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(channelBucket)
		return bucket.Put(c.ChannelID[:], raw)
	})
}

// GetChannel fetches the channel keyed by id. Returns UnknownChannelError if
// absent.
func (d *DB) GetChannel(id [32]byte) (*Channel, error) {
	var raw []byte
	err := d.bolt.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(channelBucket)
		v := bucket.Get(id[:])
		if v == nil {
			return nil
		}
		raw = make([]byte, len(v))
		copy(raw, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, &wagererr.UnknownChannelError{ChannelID: id}
	}

	var c Channel
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("unable to decode channel %x: %w", id, err)
	}
	return &c, nil
}

// ListChannels returns every known channel. Callers needing to filter do so
// in memory; the channel count per node is small enough (one per
// counterparty) that this never needs the sqlite-backed pagination the Bets
// table has.
func (d *DB) ListChannels() ([]*Channel, error) {
	var out []*Channel
	err := d.bolt.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(channelBucket)
		return bucket.ForEach(func(_, v []byte) error {
			var c Channel
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			out = append(out, &c)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list channels: %w", err)
	}
	return out, nil
}
