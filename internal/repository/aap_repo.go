package repository

import (
	"time"

	"go-amana-aap/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AAPRepository interface {
	Create(aap *model.AAP) error
	FindByID(id uuid.UUID) (*model.AAP, error)
	FindAll() ([]model.AAP, error)
	FindByAgent(agentID uuid.UUID) ([]model.AAP, error)
	FindByRetailer(retailerID uuid.UUID) ([]model.AAP, error)
	FindStaleBefore(cutoff time.Time, statuses []model.Status) ([]model.AAP, error)
	GetDashboardStats() (*DashboardStats, error)
}

// DashboardStats is the operator overview of the AAP book.
type DashboardStats struct {
	TotalAAPs         int64            `json:"total_aaps"`
	ByStatus          map[string]int64 `json:"by_status"`
	OutstandingCredit string           `json:"outstanding_reserved_credit"`
	MarkupEarned      string           `json:"markup_earned"`
}

type aapRepo struct {
	db *gorm.DB
}

func NewAAPRepo(db *gorm.DB) AAPRepository {
	return &aapRepo{db}
}

func (r *aapRepo) Create(aap *model.AAP) error {
	return r.db.Create(aap).Error
}

func (r *aapRepo) FindByID(id uuid.UUID) (*model.AAP, error) {
	var aap model.AAP
	err := r.db.Preload("Agent").Preload("Retailer").First(&aap, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &aap, nil
}

func (r *aapRepo) FindAll() ([]model.AAP, error) {
	var aaps []model.AAP
	err := r.db.Preload("Agent").Preload("Retailer").Order("created_at DESC").Find(&aaps).Error
	return aaps, err
}

func (r *aapRepo) FindByAgent(agentID uuid.UUID) ([]model.AAP, error) {
	var aaps []model.AAP
	err := r.db.Preload("Retailer").Where("agent_id = ?", agentID).Order("created_at DESC").Find(&aaps).Error
	return aaps, err
}

func (r *aapRepo) FindByRetailer(retailerID uuid.UUID) ([]model.AAP, error) {
	var aaps []model.AAP
	err := r.db.Preload("Agent").Where("retailer_id = ?", retailerID).Order("created_at DESC").Find(&aaps).Error
	return aaps, err
}

// FindStaleBefore lists AAPs that have sat in one of the given statuses
// since before the cutoff. Used by the expiry sweeper.
func (r *aapRepo) FindStaleBefore(cutoff time.Time, statuses []model.Status) ([]model.AAP, error) {
	var aaps []model.AAP
	err := r.db.Where("status IN ? AND updated_at < ?", statuses, cutoff).Find(&aaps).Error
	return aaps, err
}

func (r *aapRepo) GetDashboardStats() (*DashboardStats, error) {
	stats := &DashboardStats{ByStatus: map[string]int64{}}

	if err := r.db.Model(&model.AAP{}).Count(&stats.TotalAAPs).Error; err != nil {
		return nil, err
	}

	rows, err := r.db.Model(&model.AAP{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = count
	}

	// Credit currently tied up in live reservations
	if err := r.db.Model(&model.AAP{}).
		Where("credit_reserved = ?", true).
		Select("COALESCE(SUM(total_retailer_cost), 0)").
		Scan(&stats.OutstandingCredit).Error; err != nil {
		return nil, err
	}

	// Markup locked in by settled purchases
	if err := r.db.Model(&model.AAP{}).
		Where("status = ?", model.StatusCompleted).
		Select("COALESCE(SUM(markup_amount), 0)").
		Scan(&stats.MarkupEarned).Error; err != nil {
		return nil, err
	}

	return stats, nil
}
