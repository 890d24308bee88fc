package models

// CaseCounter is the durable per-year case number sequence
type CaseCounter struct {
	Year         int `gorm:"primaryKey;autoIncrement:false" json:"year"`
	LastSequence int `gorm:"not null" json:"last_sequence"`
}

// TableName specifies the table name
func (CaseCounter) TableName() string {
	return "case_counters"
}
