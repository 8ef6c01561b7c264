package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	ierrors "github.com/jrsteele09/go-site-auth/internal/errors"
	"github.com/jrsteele09/go-site-auth/sessions"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Store is a SQLite-backed implementation of sessions.Store. The durable
// tier survives process restarts; the session tier is wiped on Open, which
// mirrors session-scoped storage being lost when the client goes away.
type Store struct {
	db *sql.DB
}

var _ sessions.Store = (*Store)(nil)

const schema = `
create table if not exists tiered_state (
	tier text not null,
	key text not null,
	value blob not null,
	primary key (tier, key)
);`

// Open creates or opens the store database under folder.
func Open(ctx context.Context, folder string) (*Store, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.Open] os.MkdirAll")
	}
	dbPath := filepath.Join(folder, "sessions.db")
	connstr := fmt.Sprintf("file:%v?_journal=wal&mode=rwc", dbPath)
	db, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, errors.Wrapf(err, "[sqlitestore.Open] unable to open %v", dbPath)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Wrapf(err, "[sqlitestore.Open] unable to ping %v", dbPath)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.Open] schema")
	}
	// Session-tier state does not outlive the previous run
	if _, err := db.ExecContext(ctx, `delete from tiered_state where tier = ?`, string(sessions.TierSession)); err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.Open] session tier wipe")
	}
	return &Store{db: db}, nil
}

// Get retrieves a value, returning ierrors.ErrNotFound when absent.
func (s *Store) Get(tier sessions.Tier, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`select value from tiered_state where tier = ? and key = ?`, string(tier), key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ierrors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.Get] query")
	}
	return value, nil
}

// Set stores a value, replacing any previous one.
func (s *Store) Set(tier sessions.Tier, key string, value []byte) error {
	_, err := s.db.Exec(`insert into tiered_state (tier, key, value) values (?, ?, ?)
		on conflict (tier, key) do update set value = excluded.value`, string(tier), key, value)
	if err != nil {
		return errors.Wrap(err, "[sqlitestore.Set] exec")
	}
	return nil
}

// Remove deletes a value. Removing an absent key is not an error.
func (s *Store) Remove(tier sessions.Tier, key string) error {
	if _, err := s.db.Exec(`delete from tiered_state where tier = ? and key = ?`, string(tier), key); err != nil {
		return errors.Wrap(err, "[sqlitestore.Remove] exec")
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
