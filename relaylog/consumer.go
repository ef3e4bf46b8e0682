package relaylog

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// ReplicaPositionStore reads back the binlog file/position a consumer has
// durably applied, so a restarted consumer can resume a Queue's upstream
// producer from the right place rather than the start of the log. It only
// reads; writing the position is left to whatever owns the table.
type ReplicaPositionStore struct {
	db *sql.DB
}

// OpenReplicaPositionStore opens a MySQL connection used only to read back
// a replica's last-applied binlog coordinates (e.g. from
// performance_schema.replication_applier_status_by_worker or an
// application-owned checkpoint table), via dsn in go-sql-driver/mysql
// format.
func OpenReplicaPositionStore(dsn string) (*ReplicaPositionStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("relaylog: open position store: %w", err)
	}
	return &ReplicaPositionStore{db: db}, nil
}

// LastAppliedPosition queries table (schema-qualified) for the most
// recently recorded (file, position) pair: the row with the highest id.
// The table needs columns named id, binlog_file and binlog_pos; this is a
// bring-your-own-schema helper, not a fixed migration.
func (s *ReplicaPositionStore) LastAppliedPosition(ctx context.Context, table string) (file string, pos uint32, err error) {
	query := fmt.Sprintf("SELECT binlog_file, binlog_pos FROM %s ORDER BY id DESC LIMIT 1", table)
	row := s.db.QueryRowContext(ctx, query)
	if err := row.Scan(&file, &pos); err != nil {
		return "", 0, fmt.Errorf("relaylog: read last applied position: %w", err)
	}
	return file, pos, nil
}

// Close releases the underlying connection.
func (s *ReplicaPositionStore) Close() error { return s.db.Close() }

// DemoConsumer drains a Queue and forwards each entry to handle, logging
// and continuing past handler errors rather than stopping the drain loop
// (a relay-log writer is expected to be far more durable about individual
// failures than this illustrative consumer).
type DemoConsumer struct {
	queue  *Queue
	handle func(interface{}) error
	log    *logrus.Entry
}

// NewDemoConsumer returns a consumer draining queue, calling handle for
// every popped entry.
func NewDemoConsumer(queue *Queue, handle func(interface{}) error) *DemoConsumer {
	return &DemoConsumer{queue: queue, handle: handle, log: logrus.WithField("component", "relaylog.consumer")}
}

// Run pops from the queue until ctx is done, calling handle for each entry.
func (c *DemoConsumer) Run(ctx context.Context) error {
	for {
		v, err := c.queue.Pop(ctx)
		if err != nil {
			return err
		}
		if err := c.handle(v); err != nil {
			c.log.WithError(err).Warn("relay consumer handler failed, continuing")
		}
	}
}
