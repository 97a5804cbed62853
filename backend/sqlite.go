package backend

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/mattn/go-sqlite3"
	"github.com/pierredavidbelanger/logscope/api"
	"github.com/pierredavidbelanger/logscope/metrics"
	"github.com/pierredavidbelanger/logscope/spi"
	"github.com/pierredavidbelanger/logscope/utils"
	"github.com/rs/zerolog/log"
)

const driverName = "sqlite3_logscope"

var patterns, _ = lru.New(128)

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("regexp", matchPattern, true)
		},
	})
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patterns.Get(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	patterns.Add(pattern, re)
	return re, nil
}

func matchPattern(pattern, s string) (bool, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}

type sqliteBackend struct {
	asyncBackend
	batchSize  int
	retention  utils.Retention
	dbFilePath string
	db         *sql.DB
	hStmt      *sql.Stmt
	bStmt      *sql.Stmt
}

func newSQLiteBackend(backendURL *url.URL) (*sqliteBackend, error) {

	b := sqliteBackend{}
	err := initAsyncBackend(backendURL, &b.asyncBackend)
	if err != nil {
		return nil, err
	}

	batchSize, err := utils.GetIntQueryParam(backendURL, "batchSize", 32)
	if err != nil {
		return nil, err
	}
	b.batchSize = batchSize

	retention, err := utils.GetRetentionQueryParam(backendURL, "retention", utils.INF)
	if err != nil {
		return nil, err
	}
	b.retention = retention

	dbFilePath := backendURL.Path
	if dbFilePath == "" {
		return nil, fmt.Errorf("Invalid SQLite database file path '%s'", dbFilePath)
	}
	b.dbFilePath = dbFilePath

	return &b, nil
}

func (b *sqliteBackend) Start() error {

	var err error

	dbDir := filepath.Dir(b.dbFilePath)
	err = os.MkdirAll(dbDir, os.ModePerm)
	if err != nil {
		return err
	}

	db, err := sql.Open(driverName, b.dbFilePath)
	if err != nil {
		return err
	}
	b.db = db

	schema := []string{
		"CREATE TABLE IF NOT EXISTS logh (ts INTEGER, level VARCHAR(32), res VARCHAR(255), trace VARCHAR(255), span VARCHAR(255), vcs VARCHAR(255), parent VARCHAR(255), extra TEXT)",
		"CREATE INDEX IF NOT EXISTS logh_ts_idx ON logh (ts)",
		"CREATE INDEX IF NOT EXISTS logh_res_idx ON logh (res, ts)",
		"CREATE INDEX IF NOT EXISTS logh_trace_idx ON logh (trace, ts)",
		"CREATE VIRTUAL TABLE IF NOT EXISTS logb USING FTS4(msg, tokenize=unicode61)",
	}
	for _, stmt := range schema {
		if _, err = db.Exec(stmt); err != nil {
			db.Close()
			return err
		}
	}

	hStmt, err := db.Prepare("INSERT INTO logh (ts, level, res, trace, span, vcs, parent, extra) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		db.Close()
		return err
	}
	b.hStmt = hStmt

	bStmt, err := db.Prepare("INSERT INTO logb (docid, msg) VALUES (LAST_INSERT_ROWID(), ?)")
	if err != nil {
		hStmt.Close()
		db.Close()
		return err
	}
	b.bStmt = bStmt

	go b.run()

	return nil
}

func (b *sqliteBackend) Close() error {

	cond := sync.NewCond(&sync.Mutex{})
	cond.L.Lock()
	b.stopQ <- cond
	cond.Wait()
	cond.L.Unlock()

	if b.bStmt != nil {
		b.bStmt.Close()
		b.bStmt = nil
	}
	if b.hStmt != nil {
		b.hStmt.Close()
		b.hStmt = nil
	}
	if b.db != nil {
		b.db.Close()
		b.db = nil
	}

	return nil
}

func (b *sqliteBackend) Insert(req *api.InsertRequest) (*api.InsertResponse, error) {
	res := api.InsertResponse{}
	if req.Record != nil {
		b.insertQ <- req.Record
		res.Accepted++
	}
	for _, r := range req.Records {
		if r != nil {
			b.insertQ <- r
			res.Accepted++
		}
	}
	return &res, nil
}

func (b *sqliteBackend) Query(req *api.LogQuery) (*api.LogsResponse, error) {
	if req.Regex != "" {
		if _, err := compilePattern(req.Regex); err != nil {
			return nil, fmt.Errorf("%w: regex: %s", spi.ErrInvalidQuery, err)
		}
	}
	if !req.StartTime.IsZero() && !req.EndTime.IsZero() && req.EndTime.Before(req.StartTime) {
		return nil, fmt.Errorf("%w: endTime is before startTime", spi.ErrInvalidQuery)
	}
	return newQueryM(req).push(b.queryQ).pollWithTimeout(b.timeout)
}

func (b *sqliteBackend) run() {
	retentionTicker := time.NewTicker(1 * time.Hour)
	defer retentionTicker.Stop()
	for {
		select {
		case r := <-b.insertQ:
			b.handleInsert(r)
		case m := <-b.queryQ:
			b.handleQuery(m)
		case now := <-retentionTicker.C:
			b.handleRetention(now)
		case cond := <-b.stopQ:
			cond.L.Lock()
			cond.Broadcast()
			cond.L.Unlock()
			return
		}
	}
}

func (b *sqliteBackend) handleInsert(r *api.LogRecord) {

	var err error

	tx, err := b.db.Begin()
	if err != nil {
		log.Error().Err(err).Msg("Unable to begin transaction")
		return
	}

	err = b.handleInsertBatch(tx, r)
	if err != nil {
		log.Error().Err(err).Msg("Unable to insert")
		err = tx.Rollback()
		if err != nil {
			log.Error().Err(err).Msg("Unable to rollback")
		}
		return
	}

	err = tx.Commit()
	if err != nil {
		log.Error().Err(err).Msg("Unable to commit transaction")
	}
}

func (b *sqliteBackend) handleInsertBatch(tx *sql.Tx, r *api.LogRecord) error {

	var err error

	err = b.insertRecord(tx, r)
	if err != nil {
		return err
	}

	for i := 0; i < b.batchSize; i++ {
		select {
		case r = <-b.insertQ:
			err = b.insertRecord(tx, r)
			if err != nil {
				return err
			}
		default:
			return nil
		}
	}

	return nil
}

func (b *sqliteBackend) insertRecord(tx *sql.Tx, r *api.LogRecord) error {
	extra := ""
	if len(r.Extra) > 0 {
		data, err := json.Marshal(r.Extra)
		if err != nil {
			return err
		}
		extra = string(data)
	}
	parent := r.Metadata()["parentResourceId"]
	if _, err := tx.Stmt(b.hStmt).Exec(r.Timestamp.UnixNano(), r.Level, r.ResourceID, r.TraceID, r.SpanID, r.Commit, parent, extra); err != nil {
		return err
	}
	if _, err := tx.Stmt(b.bStmt).Exec(r.Message); err != nil {
		return err
	}
	return nil
}

// ftsQuery turns free text into a conjunction of quoted FTS terms so that
// user input never reaches the FTS query syntax.
func ftsQuery(s string) string {
	var terms []string
	for _, word := range strings.Fields(s) {
		word = strings.ReplaceAll(word, `"`, "")
		if word != "" {
			terms = append(terms, `"`+word+`"`)
		}
	}
	return strings.Join(terms, " ")
}

func (b *sqliteBackend) buildQueryFromAndWhere(req *api.LogQuery, sqlBuf *bytes.Buffer, args *[]interface{}) {
	fmt.Fprint(sqlBuf, "FROM logh AS h JOIN logb AS b ON b.docid = h.rowid ")
	fmt.Fprint(sqlBuf, "WHERE 1=1 ")
	if !req.StartTime.IsZero() {
		fmt.Fprint(sqlBuf, "AND h.ts >= ? ")
		*args = append(*args, req.StartTime.UnixNano())
	}
	if !req.EndTime.IsZero() {
		fmt.Fprint(sqlBuf, "AND h.ts <= ? ")
		*args = append(*args, req.EndTime.UnixNano())
	}
	if req.Level != "" {
		fmt.Fprint(sqlBuf, "AND LOWER(h.level) = LOWER(?) ")
		*args = append(*args, req.Level)
	}
	exact := []struct {
		column string
		value  string
	}{
		{"h.res", req.ResourceID},
		{"h.trace", req.TraceID},
		{"h.span", req.SpanID},
		{"h.vcs", req.Commit},
		{"h.parent", req.ParentResourceID},
	}
	for _, e := range exact {
		if e.value != "" {
			fmt.Fprintf(sqlBuf, "AND %s = ? ", e.column)
			*args = append(*args, e.value)
		}
	}
	if q := ftsQuery(req.Search); q != "" {
		fmt.Fprint(sqlBuf, "AND b.msg MATCH ? ")
		*args = append(*args, q)
	}
	if req.Message != "" {
		fmt.Fprint(sqlBuf, "AND INSTR(LOWER(b.msg), LOWER(?)) > 0 ")
		*args = append(*args, req.Message)
	}
	if req.Regex != "" {
		fmt.Fprint(sqlBuf, "AND b.msg REGEXP ? ")
		*args = append(*args, req.Regex)
	}
}

func clamp(min, v, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func pageAndLimit(req *api.LogQuery) (int, int) {
	page := req.Page
	if page <= 0 {
		page = 1
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	return page, clamp(1, limit, 256)
}

func (b *sqliteBackend) buildQueryLimit(req *api.LogQuery, sqlBuf *bytes.Buffer, args *[]interface{}) {
	page, limit := pageAndLimit(req)
	fmt.Fprint(sqlBuf, "LIMIT ? OFFSET ? ")
	*args = append(*args, limit)
	*args = append(*args, clamp(0, (page-1)*limit, math.MaxInt32))
}

func (b *sqliteBackend) handleQuery(m *queryM) {
	started := time.Now()
	res, err := b.query(m.req)
	metrics.RecordQuery(started, err)
	m.res <- queryResult{res, err}
}

func (b *sqliteBackend) query(req *api.LogQuery) (*api.LogsResponse, error) {

	args := []interface{}{}
	sqlBuf := &bytes.Buffer{}
	fmt.Fprint(sqlBuf, "SELECT COUNT(h.rowid) ")
	b.buildQueryFromAndWhere(req, sqlBuf, &args)

	res := api.LogsResponse{Logs: []*api.LogRecord{}}

	if err := b.db.QueryRow(sqlBuf.String(), args...).Scan(&res.Count); err != nil {
		return nil, err
	}

	args = []interface{}{}
	sqlBuf = &bytes.Buffer{}
	fmt.Fprint(sqlBuf, "SELECT h.ts, h.level, h.res, h.trace, h.span, h.vcs, h.extra, b.msg ")
	b.buildQueryFromAndWhere(req, sqlBuf, &args)
	fmt.Fprint(sqlBuf, "ORDER BY h.ts DESC, h.rowid DESC ")
	b.buildQueryLimit(req, sqlBuf, &args)

	rows, err := b.db.Query(sqlBuf.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ts int64
		var extra string
		r := api.LogRecord{}
		err = rows.Scan(&ts, &r.Level, &r.ResourceID, &r.TraceID, &r.SpanID, &r.Commit, &extra, &r.Message)
		if err != nil {
			return nil, err
		}
		r.Timestamp = time.Unix(0, ts).UTC()
		if extra != "" {
			if err := json.Unmarshal([]byte(extra), &r.Extra); err != nil {
				return nil, err
			}
		}
		res.Logs = append(res.Logs, &r)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return &res, nil
}

func (b *sqliteBackend) handleRetention(now time.Time) {

	if b.retention == utils.INF {
		// Keep all the things!
		return
	}

	upto := now.Add(-time.Duration(b.retention))

	tx, err := b.db.Begin()
	if err != nil {
		log.Error().Err(err).Msg("Unable to begin transaction")
		return
	}

	purged, err := b.handleRetentionBatch(tx, upto)
	if err != nil {
		log.Error().Err(err).Msg("Unable to delete")
		err = tx.Rollback()
		if err != nil {
			log.Error().Err(err).Msg("Unable to rollback")
		}
		return
	}

	err = tx.Commit()
	if err != nil {
		log.Error().Err(err).Msg("Unable to commit transaction")
		return
	}

	metrics.RecordPurged(purged)
	log.Debug().Int64("purged", purged).Time("upto", upto).Msg("Retention applied")
}

func (b *sqliteBackend) handleRetentionBatch(tx *sql.Tx, upto time.Time) (int64, error) {

	_, err := tx.Exec("DELETE FROM logb WHERE docid IN (SELECT rowid FROM logh WHERE ts < ?)", upto.UnixNano())
	if err != nil {
		return 0, err
	}

	res, err := tx.Exec("DELETE FROM logh WHERE ts < ?", upto.UnixNano())
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
