package logging

// Standardized field names for structured logging. Keeping these in one
// place makes log output consistent and easy to filter.
const (
	FieldFile        = "file_path"
	FieldPage        = "page"
	FieldStatementID = "statement_id"
	FieldUserID      = "user_id"
	FieldIdentifier  = "transaction_identifier"
	FieldStatus      = "status"
	FieldCount       = "count"
	FieldRows        = "rows"
	FieldReason      = "reason"
	FieldType        = "statement_type"
	FieldYear        = "default_year"
)
