package rollup

import (
	"time"

	"github.com/shopspring/decimal"
)

const YearMonthLayout = "2006-01"

// MonthlyRevenueFact is one calendar month of payments. Months whose payments
// all failed are kept with zero revenue.
type MonthlyRevenueFact struct {
	YearMonth                  string          `gorm:"column:year_month;primaryKey;size:7" json:"year_month"`
	TotalRevenue               decimal.Decimal `gorm:"column:total_revenue;type:decimal(18,2);not null" json:"total_revenue"`
	SuccessfulTransactionCount int             `gorm:"column:successful_transaction_count;not null" json:"successful_transaction_count"`
	UpdatedAt                  time.Time       `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (MonthlyRevenueFact) TableName() string { return "monthly_revenue_facts" }
