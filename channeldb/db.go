package channeldb

import (
	"database/sql"
	"fmt"

	"github.com/btcsuite/btclog"
	bbolt "go.etcd.io/bbolt"
	_ "modernc.org/sqlite"
)

// channelBucket holds one k/v entry per channel, keyed by channel_identifier,
// value a JSON-encoded Channel. A single flat bucket is enough: the protocol
// is strictly bilateral per channel id, so there is no grouping key worth a
// nested bucket layout.
var channelBucket = []byte("channels")

const betsSchema = `
CREATE TABLE IF NOT EXISTS bets (
	bet_id TEXT PRIMARY KEY,
	channel_id TEXT NOT NULL,
	round INTEGER NOT NULL,
	initiator TEXT NOT NULL,
	status INTEGER NOT NULL,
	payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_bets_channel ON bets(channel_id);
CREATE INDEX IF NOT EXISTS idx_bets_status ON bets(status);
CREATE UNIQUE INDEX IF NOT EXISTS idx_bets_channel_round ON bets(channel_id, round);
`

// DB is the state store adapter: a bbolt handle for point-lookup Channel
// records and a sqlite handle for the Bets projection table, which needs
// filtered, paginated listing that a bolt bucket scan would serve poorly.
type DB struct {
	bolt *bbolt.DB
	sql  *sql.DB
	log  btclog.Logger
}

// Open creates or opens the two underlying stores and ensures their schema
// exists. boltPath and sqlitePath may point at the same directory; they are
// independent files.
func Open(boltPath, sqlitePath string, log btclog.Logger) (*DB, error) {
	bolt, err := bbolt.Open(boltPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to open channel store: %w", err)
	}

	err = bolt.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(channelBucket)
		return err
	})
	if err != nil {
		bolt.Close()
		return nil, fmt.Errorf("unable to init channel store schema: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", sqlitePath)
	if err != nil {
		bolt.Close()
		return nil, fmt.Errorf("unable to open bet store: %w", err)
	}
	// modernc.org/sqlite is not safe for concurrent writers across
	// connections; this store is only ever driven by the single
	// channelActor goroutine per channel plus read-only list queries, so a
	// single pooled connection is sufficient and avoids SQLITE_BUSY churn.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(betsSchema); err != nil {
		bolt.Close()
		sqlDB.Close()
		return nil, fmt.Errorf("unable to init bet store schema: %w", err)
	}

	return &DB{bolt: bolt, sql: sqlDB, log: log}, nil
}

// Close releases both underlying store handles.
func (d *DB) Close() error {
	sqlErr := d.sql.Close()
	boltErr := d.bolt.Close()
	if boltErr != nil {
		return boltErr
	}
	return sqlErr
}
