package service

import (
	"errors"
	"fmt"

	"go-amana-aap/internal/model"
	"go-amana-aap/internal/repository"

	"gorm.io/gorm"
)

// RetailerLookup resolves a retailer by phone number. The engine consumes
// this at link time; failures must surface as distinct conditions because a
// stale snapshot could cause a wrong credit decision.
type RetailerLookup interface {
	FindByPhone(phone string) (*model.User, error)
}

type retailerLookup struct {
	userRepo repository.UserRepository
}

func NewRetailerLookup(userRepo repository.UserRepository) RetailerLookup {
	return &retailerLookup{userRepo: userRepo}
}

func (s *retailerLookup) FindByPhone(phone string) (*model.User, error) {
	if phone == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrValidation)
	}

	retailer, err := s.userRepo.FindRetailerByPhone(phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no retailer with phone %s", ErrNotFound, phone)
		}
		return nil, fmt.Errorf("%w: retailer lookup: %v", ErrUpstreamUnavailable, err)
	}
	return retailer, nil
}
