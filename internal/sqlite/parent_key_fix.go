package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/tabletree/lattice/pkg/types"
)

// ParentKeyToRowIndex converts text parent_key values ("Mass Effect 3")
// into the parent row's numeric row_index, so renaming a parent no longer
// severs its children. Text grand_*_parent values are converted the same
// way. Rows whose parent cannot be resolved are logged and left untouched.
type ParentKeyToRowIndex struct {
	// BatchSize bounds rows per transaction. Zero means the default.
	BatchSize int
}

func (f *ParentKeyToRowIndex) ID() string {
	return "migrate_parent_key_to_row_index_2025_10_27_v4"
}

func (f *ParentKeyToRowIndex) Description() string {
	return "Convert parent_key from text values to numeric row_index for stable references"
}

func (f *ParentKeyToRowIndex) Apply(db *sql.DB, rep *types.MigrationReport, notify types.ProgressFunc) error {
	if notify == nil {
		notify = func(types.Progress) {}
	}
	batchSize := f.BatchSize
	if batchSize <= 0 {
		batchSize = types.DefaultBatchSize
	}

	tables, err := CatalogTables(db)
	if err != nil {
		return err
	}
	log.Printf("parent_key migration: found %d tables to check", len(tables))

	for i, desc := range tables {
		table := desc.Name
		notify(types.Progress{
			Total:        len(tables),
			Completed:    i,
			CurrentTable: table,
			Message:      fmt.Sprintf("checking %s", table),
		})

		hasParentKey, err := ColumnExists(db, table, types.ColumnParentKey)
		if err != nil {
			return err
		}
		if !hasParentKey {
			continue
		}
		hasRowIndex, err := ColumnExists(db, table, types.ColumnRowIndex)
		if err != nil {
			return err
		}
		if !hasRowIndex {
			log.Printf("table %q has parent_key but no row_index, skipping", table)
			continue
		}

		parentTable, ok, err := ParentTableOf(db, table)
		if err != nil {
			return err
		}
		if !ok {
			log.Printf("cannot determine parent table of %q, skipping", table)
			continue
		}
		parentExists, err := TableExists(db, parentTable)
		if err != nil {
			return err
		}
		if !parentExists {
			log.Printf("parent table %q of %q not found, skipping", parentTable, table)
			continue
		}

		totalRows, err := RowCount(db, table)
		if err != nil {
			return err
		}
		if totalRows == 0 {
			continue
		}

		ancestorCols, err := GrandParentColumns(db, table)
		if err != nil {
			return err
		}

		counts, err := f.migrateTable(db, table, parentTable, ancestorCols, batchSize, totalRows)
		if err != nil {
			rep.RecordFailure(table, err)
			return fmt.Errorf("migrating %q: %w", table, err)
		}
		rep.MergeTable(counts)
		log.Printf("completed %q: %d migrated, %d skipped, %d broken",
			table, counts.Migrated, counts.Skipped, counts.Broken)
	}
	return nil
}

// brokenRef is one row whose textual parent could not be resolved.
type brokenRef struct {
	rowIndex  int64
	parentKey string
	ancestors []string
}

// rowUpdate holds the resolved numeric values for one row, applied inside
// the batch transaction.
type rowUpdate struct {
	id            int64
	parentKeyNew  string
	haveParentKey bool
	ancestorCols  []string
	ancestorVals  []string
}

func (f *ParentKeyToRowIndex) migrateTable(
	db *sql.DB,
	table, parentTable string,
	ancestorCols []string,
	batchSize int,
	totalRows int64,
) (types.TableCounts, error) {
	var counts types.TableCounts
	numBatches := (totalRows + int64(batchSize) - 1) / int64(batchSize)
	log.Printf("processing %q in %d batches of %d rows", table, numBatches, batchSize)

	selectCols := fmt.Sprintf("id, %s, %s", types.ColumnRowIndex, types.ColumnParentKey)
	for _, col := range ancestorCols {
		selectCols += fmt.Sprintf(", %q", col)
	}

	for batch := int64(0); batch < numBatches; batch++ {
		offset := batch * int64(batchSize)
		query := fmt.Sprintf(
			"SELECT %s FROM %q ORDER BY id LIMIT %d OFFSET %d",
			selectCols, table, batchSize, offset)

		updates, broken, batchCounts, err := f.scanBatch(db, query, table, parentTable, ancestorCols)
		if err != nil {
			return counts, err
		}

		if len(updates) > 0 {
			if err := applyBatch(db, table, updates); err != nil {
				return counts, err
			}
		}

		counts.Migrated += batchCounts.Migrated
		counts.Skipped += batchCounts.Skipped
		counts.Broken += len(broken)
		logBroken(table, batch+1, numBatches, broken)
	}
	return counts, nil
}

// scanBatch reads one batch of rows and computes the resolved updates for
// it. No writes happen here; updates are applied afterwards in one
// transaction.
func (f *ParentKeyToRowIndex) scanBatch(
	db *sql.DB,
	query, table, parentTable string,
	ancestorCols []string,
) ([]rowUpdate, []brokenRef, types.TableCounts, error) {
	var (
		updates []rowUpdate
		broken  []brokenRef
		counts  types.TableCounts
	)

	rows, err := db.Query(query)
	if err != nil {
		return nil, nil, counts, fmt.Errorf("fetching batch of %q: %w", table, err)
	}
	defer rows.Close()

	type scannedRow struct {
		id        int64
		rowIndex  int64
		parentKey sql.NullString
		ancestors []sql.NullString
	}
	var batch []scannedRow

	for rows.Next() {
		r := scannedRow{ancestors: make([]sql.NullString, len(ancestorCols))}
		dest := []any{&r.id, &r.rowIndex, &r.parentKey}
		for i := range r.ancestors {
			dest = append(dest, &r.ancestors[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, counts, fmt.Errorf("scanning batch of %q: %w", table, err)
		}
		batch = append(batch, r)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, counts, err
	}
	rows.Close()

	for _, r := range batch {
		ancestors := make([]string, len(r.ancestors))
		for i, a := range r.ancestors {
			ancestors[i] = a.String
		}

		upd := rowUpdate{id: r.id}
		parentKey := r.parentKey.String

		if !r.parentKey.Valid || isNumeric(parentKey) {
			counts.Skipped++
		} else {
			parentRow, found, err := resolveParentRowIndex(db, parentTable, parentKey, ancestors, ancestorCols)
			if err != nil {
				log.Printf("error resolving parent_key %q for row_index=%d: %v", parentKey, r.rowIndex, err)
				broken = append(broken, brokenRef{rowIndex: r.rowIndex, parentKey: parentKey, ancestors: ancestors})
			} else if found {
				upd.parentKeyNew = strconv.FormatInt(parentRow, 10)
				upd.haveParentKey = true
				counts.Migrated++
			} else {
				broken = append(broken, brokenRef{rowIndex: r.rowIndex, parentKey: parentKey, ancestors: ancestors})
			}
		}

		// Grand columns convert independently of the parent_key outcome.
		for i, val := range ancestors {
			if strings.TrimSpace(val) == "" || isNumeric(val) {
				continue
			}
			level, ok := types.GrandParentLevel(ancestorCols[i])
			if !ok {
				continue
			}
			ancestorTable, ok := climbTable(parentTable, level)
			if !ok {
				continue
			}
			rowIdx, found, err := resolveDisplayText(db, ancestorTable, val)
			if err != nil {
				return nil, nil, counts, err
			}
			if found {
				upd.ancestorCols = append(upd.ancestorCols, ancestorCols[i])
				upd.ancestorVals = append(upd.ancestorVals, strconv.FormatInt(rowIdx, 10))
			}
		}

		if upd.haveParentKey || len(upd.ancestorCols) > 0 {
			updates = append(updates, upd)
		}
	}
	return updates, broken, counts, nil
}

// applyBatch writes one batch of resolved updates inside a transaction.
func applyBatch(db *sql.DB, table string, updates []rowUpdate) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("starting batch transaction on %q: %w", table, err)
	}
	defer tx.Rollback()

	for _, upd := range updates {
		if upd.haveParentKey {
			_, err := tx.Exec(fmt.Sprintf(
				"UPDATE %q SET %s = ? WHERE id = ?", table, types.ColumnParentKey),
				upd.parentKeyNew, upd.id)
			if err != nil {
				return fmt.Errorf("updating parent_key in %q: %w", table, err)
			}
		}
		for i, col := range upd.ancestorCols {
			_, err := tx.Exec(fmt.Sprintf(
				"UPDATE %q SET %q = ? WHERE id = ?", table, col),
				upd.ancestorVals[i], upd.id)
			if err != nil {
				return fmt.Errorf("updating %q.%q: %w", table, col, err)
			}
		}
	}
	return tx.Commit()
}

// resolveParentRowIndex finds the parent row's row_index for a textual
// parent_key, constraining the match with every non-empty ancestor value.
// The child's grand_1_parent maps to the parent's parent_key, grand_N to
// the parent's grand_{N-1}_parent. An ancestor that cannot itself be
// resolved fails the whole match.
func resolveParentRowIndex(
	db *sql.DB,
	parentTable, parentKeyText string,
	ancestors []string,
	ancestorCols []string,
) (int64, bool, error) {
	keyColumn, err := PrimaryDisplayColumn(db, parentTable)
	if err != nil {
		return 0, false, err
	}

	conditions := []string{fmt.Sprintf("LOWER(%q) = LOWER(?)", keyColumn)}
	args := []any{parentKeyText}

	for i, val := range ancestors {
		if strings.TrimSpace(val) == "" {
			continue
		}
		level, ok := types.GrandParentLevel(ancestorCols[i])
		if !ok {
			continue
		}
		parentCol := types.ColumnParentKey
		if level >= 2 {
			parentCol = types.GrandParentColumn(level - 1)
		}
		hasCol, err := ColumnExists(db, parentTable, parentCol)
		if err != nil {
			return 0, false, err
		}
		if !hasCol {
			continue
		}

		numeric := val
		if !isNumeric(val) {
			ancestorTable, ok := climbTable(parentTable, level)
			if !ok {
				return 0, false, nil
			}
			rowIdx, found, err := resolveDisplayText(db, ancestorTable, val)
			if err != nil {
				return 0, false, err
			}
			if !found {
				return 0, false, nil
			}
			numeric = strconv.FormatInt(rowIdx, 10)
		}
		conditions = append(conditions, fmt.Sprintf("%q = ?", parentCol))
		args = append(args, numeric)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM %q WHERE %s LIMIT 1",
		types.ColumnRowIndex, parentTable, strings.Join(conditions, " AND "))

	var rowIndex int64
	err = db.QueryRow(query, args...).Scan(&rowIndex)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolving parent in %q: %w", parentTable, err)
	}
	return rowIndex, true, nil
}

// resolveDisplayText finds a row by its primary display value, matching
// case-insensitively.
func resolveDisplayText(db *sql.DB, table, text string) (int64, bool, error) {
	exists, err := TableExists(db, table)
	if err != nil || !exists {
		return 0, false, err
	}
	col, err := PrimaryDisplayColumn(db, table)
	if err != nil {
		return 0, false, err
	}
	var rowIndex int64
	err = db.QueryRow(fmt.Sprintf(
		"SELECT %s FROM %q WHERE LOWER(%q) = LOWER(?) LIMIT 1",
		types.ColumnRowIndex, table, col), text).Scan(&rowIndex)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resolving %q in %q: %w", text, table, err)
	}
	return rowIndex, true, nil
}

// climbTable walks n levels up from a table by trimming name segments.
// climbTable("Games_Platforms", 1) is "Games".
func climbTable(table string, n int) (string, bool) {
	current := table
	for i := 0; i < n; i++ {
		idx := strings.LastIndex(current, "_")
		if idx <= 0 {
			return "", false
		}
		current = current[:idx]
	}
	return current, true
}

// logBroken reports unresolved references for one batch, capped at five
// rows to keep the log readable.
func logBroken(table string, batch, numBatches int64, broken []brokenRef) {
	if len(broken) == 0 {
		return
	}
	log.Printf("batch %d/%d of %q: %d broken references", batch, numBatches, table, len(broken))
	for i, ref := range broken {
		if i >= 5 {
			log.Printf("  ... and %d more broken references in this batch", len(broken)-5)
			break
		}
		context := ""
		if len(ref.ancestors) > 0 {
			context = fmt.Sprintf(" (ancestors: [%s])", strings.Join(ref.ancestors, ", "))
		}
		log.Printf("  row_index=%d: parent %q not found%s", ref.rowIndex, ref.parentKey, context)
	}
}

func isNumeric(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}
