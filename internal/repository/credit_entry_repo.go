package repository

import (
	"time"

	"go-amana-aap/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreditEntryRepository interface {
	FindByAAP(aapID uuid.UUID) ([]model.CreditEntry, error)
	FindByRetailer(retailerID uuid.UUID) ([]model.CreditEntry, error)
	GetCreditMovement(startDate, endDate time.Time) ([]CreditMovementData, error)
}

// CreditMovementData aggregates reserve/release volume per day for charts.
type CreditMovementData struct {
	Date     string `json:"date"`
	Reserved string `json:"reserved"`
	Released string `json:"released"`
}

type creditEntryRepo struct {
	db *gorm.DB
}

func NewCreditEntryRepo(db *gorm.DB) CreditEntryRepository {
	return &creditEntryRepo{db}
}

func (r *creditEntryRepo) FindByAAP(aapID uuid.UUID) ([]model.CreditEntry, error) {
	var entries []model.CreditEntry
	err := r.db.Where("aap_id = ?", aapID).Order("created_at ASC").Find(&entries).Error
	return entries, err
}

func (r *creditEntryRepo) FindByRetailer(retailerID uuid.UUID) ([]model.CreditEntry, error) {
	var entries []model.CreditEntry
	err := r.db.Where("retailer_id = ?", retailerID).Order("created_at DESC").Find(&entries).Error
	return entries, err
}

func (r *creditEntryRepo) GetCreditMovement(startDate, endDate time.Time) ([]CreditMovementData, error) {
	var results []CreditMovementData

	rows, err := r.db.Model(&model.CreditEntry{}).
		Select(`
			DATE(created_at) as date,
			COALESCE(SUM(CASE WHEN type = 'RESERVE' THEN amount ELSE 0 END), 0) as reserved,
			COALESCE(SUM(CASE WHEN type = 'RELEASE' THEN amount ELSE 0 END), 0) as released
		`).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data CreditMovementData
		if err := rows.Scan(&data.Date, &data.Reserved, &data.Released); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, nil
}
