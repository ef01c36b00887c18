package analysis

// NULLs are not counted in the ndv of a column. A zero ndv on a nullable slot
// that has, or may have, nulls would zero out cardinality estimates, so it is
// raised to one.
func AdjustNumDistinctValues(ndv int64, nullable, hasNulls, hasNullsStats bool) int64 {
	if ndv == 0 && nullable && (hasNulls || !hasNullsStats) {
		return 1
	}
	return ndv
}

// ClampToRowCount caps ndv by the row count of the table, an unknown row count
// (ie rows <= 0) leaves ndv untouched.
func ClampToRowCount(ndv int64, rows int64) int64 {
	if rows > 0 && ndv > rows {
		return rows
	}
	return ndv
}
