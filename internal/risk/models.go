package risk

import "time"

type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

const ReasonNoPaymentHistory = "No payment history"

const ReasonRecentPayer = "Recent payer"

// CustomerRiskFlag holds exactly one row per customer after each refresh.
type CustomerRiskFlag struct {
	CustomerID      string     `gorm:"column:customer_id;primaryKey" json:"customer_id"`
	RiskLevel       Level      `gorm:"column:risk_level;size:8;not null;index" json:"risk_level"`
	Reason          string     `gorm:"column:reason;not null" json:"reason"`
	LastPaymentDate *time.Time `gorm:"column:last_payment_date" json:"last_payment_date"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (CustomerRiskFlag) TableName() string { return "customer_risk_flags" }
