package service

import (
	"time"

	"go-amana-aap/internal/model"
	"go-amana-aap/internal/repository"

	"github.com/google/uuid"
)

type DashboardService interface {
	GetStats() (*repository.DashboardStats, error)
	GetCreditMovement(days int) ([]repository.CreditMovementData, error)
	GetAAPCreditHistory(aapID uuid.UUID) ([]model.CreditEntry, error)
	GetRetailerCreditHistory(retailerID uuid.UUID) ([]model.CreditEntry, error)
}

type dashboardService struct {
	aapRepo    repository.AAPRepository
	creditRepo repository.CreditEntryRepository
}

func NewDashboardService(aapRepo repository.AAPRepository, creditRepo repository.CreditEntryRepository) DashboardService {
	return &dashboardService{aapRepo: aapRepo, creditRepo: creditRepo}
}

func (s *dashboardService) GetStats() (*repository.DashboardStats, error) {
	return s.aapRepo.GetDashboardStats()
}

func (s *dashboardService) GetCreditMovement(days int) ([]repository.CreditMovementData, error) {
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -days)

	return s.creditRepo.GetCreditMovement(startDate, endDate)
}

// GetAAPCreditHistory returns the reserve/release trail for one purchase,
// in the order it was written.
func (s *dashboardService) GetAAPCreditHistory(aapID uuid.UUID) ([]model.CreditEntry, error) {
	return s.creditRepo.FindByAAP(aapID)
}

func (s *dashboardService) GetRetailerCreditHistory(retailerID uuid.UUID) ([]model.CreditEntry, error) {
	return s.creditRepo.FindByRetailer(retailerID)
}
