package trace

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite3" driver with database/sql.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// SQLiteSink batches Records in memory and flushes them to a SQLite
// database in transactions of up to batchSize rows. Its final flush is
// registered with atexit, so it also runs when the process exits through
// atexit.Exit; a panic or a plain os.Exit does not run it.
type SQLiteSink struct {
	db        *sql.DB
	statement *sql.Stmt

	pending   []Record
	batchSize int
}

// NewSQLiteSink opens (creating if necessary) a SQLite database at path
// and prepares its trace table.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	s := &SQLiteSink{db: db, batchSize: 100000}

	if err := s.createTable(); err != nil {
		return nil, err
	}

	if err := s.prepareStatement(); err != nil {
		return nil, err
	}

	atexit.Register(func() { s.Flush() })

	return s, nil
}

func (s *SQLiteSink) createTable() error {
	_, err := s.db.Exec(`
		create table if not exists trace (
			row_id     varchar(20) not null primary key,
			sim_time   integer     not null,
			module     varchar(100) not null,
			port       varchar(100) not null,
			command    varchar(20)  not null,
			address    integer      not null,
			bytes      integer      not null,
			idx        integer      not null
		);
	`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`create index if not exists trace_sim_time_index on trace (sim_time);`)

	return err
}

func (s *SQLiteSink) prepareStatement() error {
	stmt, err := s.db.Prepare(`insert into trace values (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}

	s.statement = stmt

	return nil
}

// Write buffers a Record, keyed by a globally unique row ID so trace
// rows do not collide with the kernel's own per-run event numbering.
func (s *SQLiteSink) Write(r Record) {
	s.pending = append(s.pending, r)

	if len(s.pending) >= s.batchSize {
		s.Flush()
	}
}

// Flush writes every buffered Record inside a single transaction.
func (s *SQLiteSink) Flush() {
	if len(s.pending) == 0 {
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		panic(err)
	}

	stmt := tx.Stmt(s.statement)

	for _, r := range s.pending {
		_, err := stmt.Exec(xid.New().String(), int64(r.SimTime), r.Module, r.Port, r.Command, r.Address, r.Bytes, r.Index)
		if err != nil {
			tx.Rollback()
			panic(fmt.Errorf("trace: writing record: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		panic(err)
	}

	s.pending = nil
}

// Close flushes and closes the underlying database connection.
func (s *SQLiteSink) Close() error {
	s.Flush()

	return s.db.Close()
}
