package dummydb

import (
	"sync"

	"github.com/clms-app/clms/core/course"
	"github.com/clms-app/clms/core/gamification"
	"github.com/clms-app/clms/core/user"
)

type (
	// DB is an in-memory store for tests and local runs.
	// Units of work are serialized and rolled back by restoring a snapshot of the tables.
	DB struct {
		sync.RWMutex
		txMu sync.Mutex

		tables tables

		faultsMu sync.Mutex
		faults   map[string]error
	}

	tables struct {
		teacher      map[string]user.Teacher
		student      map[string]user.Student
		subject      map[string]course.Subject
		lesson       map[string]course.Lesson
		progress     map[string]gamification.Progress
		badge        map[string]gamification.Badge
		studentBadge map[string]gamification.StudentBadge
	}
)

func Open() *DB {
	return &DB{
		tables: tables{
			teacher:      make(map[string]user.Teacher),
			student:      make(map[string]user.Student),
			subject:      make(map[string]course.Subject),
			lesson:       make(map[string]course.Lesson),
			progress:     make(map[string]gamification.Progress),
			badge:        make(map[string]gamification.Badge),
			studentBadge: make(map[string]gamification.StudentBadge),
		},
		faults: make(map[string]error),
	}
}

// FailOn makes every following call of the named repository method (e.g. "CreateStudentBadge") return err.
// A nil err clears the fault.
func (db *DB) FailOn(method string, err error) {
	db.faultsMu.Lock()
	defer db.faultsMu.Unlock()
	if err == nil {
		delete(db.faults, method)
		return
	}
	db.faults[method] = err
}

func (db *DB) fault(method string) error {
	db.faultsMu.Lock()
	defer db.faultsMu.Unlock()
	return db.faults[method]
}

// write runs fn under the write lock. Writes made outside a unit of work wait for the running one to finish.
func (db *DB) write(inTx bool, fn func() error) error {
	if !inTx {
		db.txMu.Lock()
		defer db.txMu.Unlock()
	}
	db.Lock()
	defer db.Unlock()
	return fn()
}

func (db *DB) read(fn func() error) error {
	db.RLock()
	defer db.RUnlock()
	return fn()
}

func (db *DB) snapshot() tables {
	db.RLock()
	defer db.RUnlock()

	t := db.tables
	return tables{
		teacher:      copyMap(t.teacher),
		student:      copyMap(t.student),
		subject:      copyMap(t.subject),
		lesson:       copyMap(t.lesson),
		progress:     copyMap(t.progress),
		badge:        copyMap(t.badge),
		studentBadge: copyMap(t.studentBadge),
	}
}

func (db *DB) restore(t tables) {
	db.Lock()
	defer db.Unlock()
	db.tables = t
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
