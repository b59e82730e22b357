package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/internal/port"
)

type AddressService struct {
	Repo port.AddressRepository
}

func NewAddressService(repo port.AddressRepository) *AddressService {
	return &AddressService{Repo: repo}
}

type AddressInput struct {
	Name     string
	Address1 string
	Address2 string
	ZipCode  string
	City     string
	Country  string
}

func (in AddressInput) build(userID uuid.UUID) (*models.Address, error) {
	a := &models.Address{
		UserID:   userID,
		Name:     strings.TrimSpace(in.Name),
		Address1: strings.TrimSpace(in.Address1),
		Address2: strings.TrimSpace(in.Address2),
		ZipCode:  strings.TrimSpace(in.ZipCode),
		City:     strings.TrimSpace(in.City),
	}
	required := map[string]string{"name": a.Name, "address1": a.Address1, "city": a.City}
	for _, field := range []string{"name", "address1", "city"} {
		if required[field] == "" {
			return nil, fmt.Errorf("%w: %s required", ErrValidation, field)
		}
	}
	for field, v := range map[string]string{"name": a.Name, "address1": a.Address1, "address2": a.Address2, "city": a.City} {
		if len(v) > 60 {
			return nil, fmt.Errorf("%w: %s too long", ErrValidation, field)
		}
	}
	if len(a.ZipCode) > 12 {
		return nil, fmt.Errorf("%w: zip_code too long", ErrValidation)
	}
	country, err := models.ToCountry(strings.ToLower(strings.TrimSpace(in.Country)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	a.Country = country
	return a, nil
}

func (s *AddressService) List(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	return s.Repo.ListAddresses(ctx, userID)
}

func (s *AddressService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Address, error) {
	a, err := s.Repo.GetAddress(ctx, userID, id)
	if err != nil {
		return nil, notFound(err, "address")
	}
	return a, nil
}

func (s *AddressService) Create(ctx context.Context, userID uuid.UUID, in AddressInput) (*models.Address, error) {
	a, err := in.build(userID)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.CreateAddress(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AddressService) Update(ctx context.Context, userID, id uuid.UUID, in AddressInput) (*models.Address, error) {
	a, err := in.build(userID)
	if err != nil {
		return nil, err
	}
	a.ID = id
	if err := s.Repo.UpdateAddress(ctx, a); err != nil {
		return nil, notFound(err, "address")
	}
	return s.Get(ctx, userID, id)
}

func (s *AddressService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return notFound(s.Repo.DeleteAddress(ctx, userID, id), "address")
}
