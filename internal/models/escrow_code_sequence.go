package models

// EscrowCodeSequence holds the last escrow code number issued in a year.
type EscrowCodeSequence struct {
	Year    int `gorm:"primaryKey;autoIncrement:false"`
	Counter int `gorm:"not null;default:0"`
}
