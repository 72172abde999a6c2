package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // driver import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/openshelf/circulation-go/inventory"
	"github.com/openshelf/circulation-go/inventory/postgresengine/internal/adapters"
)

const (
	defaultRecordTableName = "inventory_records"

	logMsgBuildQueryFailed  = "failed to build sql query"
	logMsgDBQueryFailed     = "database query execution failed"
	logMsgDBExecFailed      = "database execution failed"
	logMsgCloseRowsFailed   = "failed to close database rows"
	logMsgScanRowFailed     = "failed to scan database row"
	logMsgBuildRecordFailed = "failed to build storable record from database row"
	logMsgRowsAffectedFailed = "failed to get rows affected count"
	logMsgScanCompleted     = "scan completed"
	logMsgRecordsCommitted  = "records committed"
	logMsgRecordDeleted     = "record deleted"
	logMsgGuardViolated     = "commit guard violated"
	logMsgSQLExecuted       = "executed sql for: "
	logMsgOperation         = "inventory operation: "

	logAttrError        = "error"
	logAttrQuery        = "query"
	logAttrKind         = "kind"
	logAttrRecordID     = "record_id"
	logAttrRecordCount  = "record_count"
	logAttrGuardCount   = "guard_count"
	logAttrDurationMS   = "duration_ms"
	logAttrRowsAffected = "rows_affected"

	logActionGet    = "get"
	logActionPut    = "put"
	logActionScan   = "scan"
	logActionCommit = "commit"
	logActionDelete = "delete"

	colKind      = "kind"
	colID        = "id"
	colPayload   = "payload"
	colCreatedAt = "created_at"
	colUpdatedAt = "updated_at"

	cteGuard        = "guard"
	cteVals         = "vals"
	dialectPostgres = "postgres"
	conflictTarget  = "kind, id"
	castText        = "?::text"
	castTimestamp   = "?::timestamp with time zone"
	castJsonb       = "?::jsonb"
)

type (
	sqlQueryString    = string
	rowsAffectedInt64 = int64
	queryDuration     = time.Duration
)

// InventoryStore is a keyed record store on Postgres: one row per (kind, id)
// with a JSONB payload. Cross-record invariants are enforced with guarded
// single-statement commits, so a guarded write is atomic without an explicit
// transaction. It leverages a database adapter and supports customizable
// logging, metrics, tracing and record table configuration.
type InventoryStore struct {
	db               adapters.DBAdapter
	recordTableName  string
	logger           Logger
	contextualLogger ContextualLogger
	metricsCollector MetricsCollector
	tracingCollector TracingCollector
}

type rowResult struct {
	kind      string
	id        string
	payload   []byte
	createdAt time.Time
	updatedAt time.Time
}

// NewInventoryStoreFromPGXPool creates a new InventoryStore using a pgx pool with optional configuration.
func NewInventoryStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*InventoryStore, error) {
	if db == nil {
		return nil, inventory.ErrNilDatabaseConnection
	}

	return newInventoryStore(adapters.NewPGXAdapter(db), options...)
}

// NewInventoryStoreFromPGXPoolWithReplica creates a new InventoryStore using a
// primary pgx pool and a replica pool for relaxed reads.
func NewInventoryStoreFromPGXPoolWithReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*InventoryStore, error) {
	if db == nil || replica == nil {
		return nil, inventory.ErrNilDatabaseConnection
	}

	return newInventoryStore(adapters.NewPGXAdapterWithReplica(db, replica), options...)
}

// NewInventoryStoreFromSQLDB creates a new InventoryStore using a sql.DB with optional configuration.
func NewInventoryStoreFromSQLDB(db *sql.DB, options ...Option) (*InventoryStore, error) {
	if db == nil {
		return nil, inventory.ErrNilDatabaseConnection
	}

	return newInventoryStore(adapters.NewSQLAdapter(db), options...)
}

// NewInventoryStoreFromSQLX creates a new InventoryStore using a sqlx.DB with optional configuration.
func NewInventoryStoreFromSQLX(db *sqlx.DB, options ...Option) (*InventoryStore, error) {
	if db == nil {
		return nil, inventory.ErrNilDatabaseConnection
	}

	return newInventoryStore(adapters.NewSQLXAdapter(db), options...)
}

func newInventoryStore(db adapters.DBAdapter, options ...Option) (*InventoryStore, error) {
	store := &InventoryStore{
		db:              db,
		recordTableName: defaultRecordTableName,
	}

	for _, option := range options {
		if err := option(store); err != nil {
			return nil, err
		}
	}

	return store, nil
}

// Get retrieves a single record by kind and id.
// Returns inventory.ErrRecordNotFound when no such record exists.
func (s *InventoryStore) Get(ctx context.Context, kind inventory.RecordKindString, id inventory.RecordIDString) (
	inventory.StorableRecord,
	error,
) {

	var empty inventory.StorableRecord

	selectStmt := goqu.Dialect(dialectPostgres).
		From(s.recordTableName).
		Select(colKind, colID, colPayload, colCreatedAt, colUpdatedAt).
		Where(goqu.Ex{colKind: kind, colID: id})

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
		return empty, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	records, _, err := s.executeScanQuery(ctx, sqlQuery, logActionGet)
	if err != nil {
		return empty, err
	}

	if len(records) == 0 {
		return empty, inventory.ErrRecordNotFound
	}

	return records[0], nil
}

// Put upserts a single record: the row is inserted on first write and updated
// afterwards, preserving created_at and always refreshing updated_at.
// Per-key atomicity only; cross-record invariants belong in Commit.
func (s *InventoryStore) Put(ctx context.Context, record inventory.StorableRecord) error {
	insertStmt := goqu.Dialect(dialectPostgres).
		Insert(s.recordTableName).
		Rows(goqu.Record{
			colKind:      record.Kind,
			colID:        record.ID,
			colPayload:   goqu.L(castJsonb, string(record.PayloadJSON)),
			colCreatedAt: record.CreatedAt,
			colUpdatedAt: record.UpdatedAt,
		}).
		OnConflict(goqu.DoUpdate(conflictTarget, goqu.Record{
			colPayload:   goqu.L("excluded.payload"),
			colUpdatedAt: goqu.L("excluded.updated_at"),
		}))

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, toSQLErr, logAttrKind, record.Kind, logAttrRecordID, record.ID)
		return errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	_, _, execErr := s.executeExecQuery(ctx, sqlQuery, logActionPut)

	return execErr
}

// Scan retrieves all records matching the filter, ordered by created_at then id.
// An empty result is not an error.
func (s *InventoryStore) Scan(ctx context.Context, filter inventory.Filter) (inventory.StorableRecords, error) {
	span, ctx := s.startScanSpan(ctx)

	selectStmt := goqu.Dialect(dialectPostgres).
		From(s.recordTableName).
		Select(colKind, colID, colPayload, colCreatedAt, colUpdatedAt).
		Order(goqu.I(colCreatedAt).Asc(), goqu.I(colID).Asc())

	selectStmt = s.addWhereClause(filter, selectStmt)

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
		s.finishSpanError(span, errorTypeBuildQuery)
		return nil, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	records, duration, err := s.executeScanQuery(ctx, sqlQuery, logActionScan)
	if err != nil {
		s.finishSpanError(span, errorTypeQuery)
		return nil, err
	}

	s.logOperation(ctx, logMsgScanCompleted,
		logAttrRecordCount, len(records),
		logAttrDurationMS, toMilliseconds(duration))
	s.recordDurationMetric(ctx, metricScanDuration, duration, logActionScan, statusSuccess)
	s.finishScanSpanSuccess(span, len(records), duration)

	return records, nil
}

// Commit atomically upserts all supplied records, but only if every guard
// holds at commit time. The whole write is a single conditional SQL statement
// (guard CTE + VALUES CTE), so either all records are written or none are.
// Returns inventory.ErrGuardViolated when a guard fails.
func (s *InventoryStore) Commit(ctx context.Context, records inventory.StorableRecords, guards ...inventory.Guard) error {
	if len(records) == 0 {
		return nil
	}

	span, ctx := s.startCommitSpan(ctx, len(records), len(guards))

	sqlQuery, buildErr := s.buildCommitQuery(records, guards)
	if buildErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, buildErr, logAttrRecordCount, len(records))
		s.finishSpanError(span, errorTypeBuildQuery)
		return buildErr
	}

	rowsAffected, duration, execErr := s.executeExecQuery(ctx, sqlQuery, logActionCommit)
	if execErr != nil {
		s.finishSpanError(span, errorTypeExec)
		return execErr
	}

	if rowsAffected < int64(len(records)) {
		s.logOperation(ctx, logMsgGuardViolated,
			logAttrRecordCount, len(records),
			logAttrRowsAffected, rowsAffected)
		s.recordGuardViolationMetric(ctx, logActionCommit)
		s.finishSpanError(span, errorTypeGuardViolated)

		return inventory.ErrGuardViolated
	}

	s.logOperation(ctx, logMsgRecordsCommitted,
		logAttrRecordCount, len(records),
		logAttrDurationMS, toMilliseconds(duration))
	s.recordDurationMetric(ctx, metricCommitDuration, duration, logActionCommit, statusSuccess)
	s.finishCommitSpanSuccess(span, rowsAffected, duration)

	return nil
}

// Delete removes a single record by kind and id.
// Returns inventory.ErrRecordNotFound when no such record exists.
func (s *InventoryStore) Delete(ctx context.Context, kind inventory.RecordKindString, id inventory.RecordIDString) error {
	rowsAffected, err := s.executeDelete(ctx, kind, id, nil)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return inventory.ErrRecordNotFound
	}

	s.logOperation(ctx, logMsgRecordDeleted, logAttrKind, kind, logAttrRecordID, id)

	return nil
}

// DeleteGuarded removes a single record by kind and id, but only if every
// guard holds at commit time, evaluated atomically with the delete itself.
// Returns inventory.ErrGuardViolated when the record was not deleted; callers
// that need to distinguish "gone" from "guard failed" should Get first inside
// their critical section.
func (s *InventoryStore) DeleteGuarded(
	ctx context.Context,
	kind inventory.RecordKindString,
	id inventory.RecordIDString,
	guards ...inventory.Guard,
) error {

	rowsAffected, err := s.executeDelete(ctx, kind, id, guards)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		s.logOperation(ctx, logMsgGuardViolated, logAttrKind, kind, logAttrRecordID, id)
		s.recordGuardViolationMetric(ctx, logActionDelete)

		return inventory.ErrGuardViolated
	}

	s.logOperation(ctx, logMsgRecordDeleted, logAttrKind, kind, logAttrRecordID, id)

	return nil
}

func (s *InventoryStore) executeDelete(
	ctx context.Context,
	kind inventory.RecordKindString,
	id inventory.RecordIDString,
	guards []inventory.Guard,
) (rowsAffectedInt64, error) {

	deleteStmt := goqu.Dialect(dialectPostgres).
		Delete(s.recordTableName).
		Where(goqu.Ex{colKind: kind, colID: id})

	for _, guard := range guards {
		deleteStmt = deleteStmt.Where(s.guardExpression(guard))
	}

	sqlQuery, _, toSQLErr := deleteStmt.ToSQL()
	if toSQLErr != nil {
		s.logError(ctx, logMsgBuildQueryFailed, toSQLErr, logAttrKind, kind, logAttrRecordID, id)
		return 0, errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, _, execErr := s.executeExecQuery(ctx, sqlQuery, logActionDelete)

	return rowsAffected, execErr
}

// buildCommitQuery builds the conditional multi-record upsert:
// the guard CTE yields a row only when all guards hold, the vals CTE carries
// the records, and the INSERT ... SELECT joins both so that a failed guard
// writes nothing.
func (s *InventoryStore) buildCommitQuery(records inventory.StorableRecords, guards []inventory.Guard) (sqlQueryString, error) {
	builder := goqu.Dialect(dialectPostgres)

	guardStmt := builder.Select(goqu.V(1))
	for _, guard := range guards {
		guardStmt = guardStmt.Where(s.guardExpression(guard))
	}

	unionStatements := make([]*goqu.SelectDataset, len(records))
	for i, record := range records {
		unionStatements[i] = builder.
			Select(
				goqu.L(castText, record.Kind).As(colKind),
				goqu.L(castText, record.ID).As(colID),
				goqu.L(castJsonb, string(record.PayloadJSON)).As(colPayload),
				goqu.L(castTimestamp, record.CreatedAt).As(colCreatedAt),
				goqu.L(castTimestamp, record.UpdatedAt).As(colUpdatedAt),
			)
	}

	valuesStmt := unionStatements[0]
	for i := 1; i < len(unionStatements); i++ {
		valuesStmt = valuesStmt.UnionAll(unionStatements[i])
	}

	valsKind := fmt.Sprintf("%s.%s", cteVals, colKind)
	valsID := fmt.Sprintf("%s.%s", cteVals, colID)
	valsPayload := fmt.Sprintf("%s.%s", cteVals, colPayload)
	valsCreatedAt := fmt.Sprintf("%s.%s", cteVals, colCreatedAt)
	valsUpdatedAt := fmt.Sprintf("%s.%s", cteVals, colUpdatedAt)

	insertStmt := builder.
		Insert(s.recordTableName).
		Cols(colKind, colID, colPayload, colCreatedAt, colUpdatedAt).
		With(cteGuard, guardStmt).
		With(cteVals, valuesStmt).
		FromQuery(
			builder.From(cteVals, cteGuard).
				Select(valsKind, valsID, valsPayload, valsCreatedAt, valsUpdatedAt),
		).
		OnConflict(goqu.DoUpdate(conflictTarget, goqu.Record{
			colPayload:   goqu.L("excluded.payload"),
			colUpdatedAt: goqu.L("excluded.updated_at"),
		}))

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(inventory.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// guardExpression compiles a guard into an (NOT) EXISTS subquery over the record table.
func (s *InventoryStore) guardExpression(guard inventory.Guard) goqu.Expression {
	subStmt := goqu.Dialect(dialectPostgres).
		From(s.recordTableName).
		Select(goqu.V(1))

	subStmt = s.addWhereClause(guard.Filter(), subStmt)

	if guard.Mode() == inventory.GuardModePresent {
		return goqu.L("EXISTS ?", subStmt)
	}

	return goqu.L("NOT EXISTS ?", subStmt)
}

func (s *InventoryStore) addWhereClause(filter inventory.Filter, selectStmt *goqu.SelectDataset) *goqu.SelectDataset {
	itemsExpressions := make([]goqu.Expression, 0)

	for _, item := range filter.Items() {
		kindExpressions := make([]goqu.Expression, 0)
		predicateExpressions := make([]goqu.Expression, 0)

		for _, kind := range item.Kinds() {
			kindExpressions = append(
				kindExpressions,
				goqu.Ex{colKind: kind},
			)
		}

		// kinds must always be filtered with OR ;-)
		kindsExpressionList := goqu.Or(kindExpressions...)

		for _, predicate := range item.Predicates() {
			predicateExpressions = append(
				predicateExpressions,
				goqu.L(fmt.Sprintf(`%s @> '{"%s": "%s"}'`, colPayload, predicate.Key(), predicate.Val())),
			)
		}

		var predicatesExpressionList exp.ExpressionList

		if item.AllPredicatesMustMatch() {
			predicatesExpressionList = goqu.And(predicateExpressions...)
		} else {
			predicatesExpressionList = goqu.Or(predicateExpressions...)
		}

		itemsExpressions = append(
			itemsExpressions,
			goqu.And(kindsExpressionList, predicatesExpressionList),
		)
	}

	selectStmt = selectStmt.Where(goqu.Or(itemsExpressions...))

	return selectStmt
}

// executeScanQuery executes a SELECT and converts the rows into records.
func (s *InventoryStore) executeScanQuery(ctx context.Context, sqlQuery string, action string) (
	inventory.StorableRecords,
	queryDuration,
	error,
) {

	start := time.Now()
	rows, queryErr := s.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	s.logQueryWithDuration(ctx, sqlQuery, action, duration)

	if queryErr != nil {
		s.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
		s.recordErrorMetric(ctx, action, errorTypeQuery)

		return nil, duration, errors.Join(inventory.ErrStorageFailure, queryErr)
	}
	defer s.closeRows(ctx, rows)

	result := rowResult{}
	records := make(inventory.StorableRecords, 0)

	for rows.Next() {
		rowScanErr := rows.Scan(&result.kind, &result.id, &result.payload, &result.createdAt, &result.updatedAt)
		if rowScanErr != nil {
			s.logError(ctx, logMsgScanRowFailed, rowScanErr)
			return nil, duration, errors.Join(inventory.ErrScanningRowFailed, rowScanErr)
		}

		record, buildErr := inventory.BuildStorableRecord(result.kind, result.id, result.payload, result.createdAt, result.updatedAt)
		if buildErr != nil {
			s.logError(ctx, logMsgBuildRecordFailed, buildErr, logAttrKind, result.kind, logAttrRecordID, result.id)
			return nil, duration, errors.Join(inventory.ErrScanningRowFailed, buildErr)
		}

		records = append(records, record)
	}

	return records, duration, nil
}

// executeExecQuery executes a mutating statement and returns rows affected and duration.
func (s *InventoryStore) executeExecQuery(ctx context.Context, sqlQuery string, action string) (
	rowsAffectedInt64,
	queryDuration,
	error,
) {

	start := time.Now()
	tag, execErr := s.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	s.logQueryWithDuration(ctx, sqlQuery, action, duration)

	if execErr != nil {
		s.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
		s.recordErrorMetric(ctx, action, errorTypeExec)

		return 0, duration, errors.Join(inventory.ErrStorageFailure, execErr)
	}

	rowsAffected, rowsAffectedErr := tag.RowsAffected()
	if rowsAffectedErr != nil {
		s.logError(ctx, logMsgRowsAffectedFailed, rowsAffectedErr)
		return 0, duration, errors.Join(inventory.ErrStorageFailure, rowsAffectedErr)
	}

	return rowsAffected, duration, nil
}

// closeRows safely closes database rows and logs any errors.
func (s *InventoryStore) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		s.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}
