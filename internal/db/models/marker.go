package models

// Marker represents a persisted process-wide flag stored in the database.
// The role index uses markers for the schema version and for the per-network
// migration-complete gate read by the query rewriter.
type Marker struct {
	ID    uint64 `gorm:"primaryKey"`
	Name  string `gorm:"unique"`
	Value []byte `gorm:"type:blob"`
}

// TableName specifies the database table name for the Marker model.
// This overrides GORM's default pluralized table naming.
func (Marker) TableName() string {
	return "markers"
}
