package service

import (
	"context"
	"sort"
	"time"

	"github.com/fieldops/workorder-service/internal/domain"
	"github.com/fieldops/workorder-service/internal/repository"
	apperrors "github.com/fieldops/workorder-service/pkg/util"
)

// DigestService groups open work orders per technician for weekly alerts.
type DigestService struct {
	workOrders  repository.WorkOrderRepository
	technicians repository.TechnicianRepository
	urgency     domain.UrgencyPolicy
}

// NewDigestService constructs the service.
func NewDigestService(workOrders repository.WorkOrderRepository, technicians repository.TechnicianRepository, urgency domain.UrgencyPolicy) *DigestService {
	return &DigestService{
		workOrders:  workOrders,
		technicians: technicians,
		urgency:     urgency,
	}
}

// BuildDigest fetches all open work orders from one snapshot, groups them by
// assigned technician and flags urgency. Orders without a technician (or whose
// technician is no longer active) are counted as unassigned, not delivered.
// Each technician's list is sorted by creation time ascending so aging work
// surfaces first.
func (s *DigestService) BuildDigest(ctx context.Context, now time.Time) (*domain.Digest, error) {
	open, err := s.workOrders.ListOpen(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	active, err := s.technicians.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	techByID := make(map[string]domain.Technician, len(active))
	for _, tech := range active {
		techByID[tech.ID] = tech
	}

	digest := &domain.Digest{GeneratedAt: now}
	grouped := make(map[string][]domain.DigestEntry)
	for _, wo := range open {
		digest.TotalAbiertas++
		urgent := s.urgency.IsUrgent(&wo, now)
		if urgent {
			digest.TotalUrgentes++
		}
		if wo.TechnicianID == nil {
			digest.SinAsignar++
			continue
		}
		if _, ok := techByID[*wo.TechnicianID]; !ok {
			digest.SinAsignar++
			continue
		}
		grouped[*wo.TechnicianID] = append(grouped[*wo.TechnicianID], domain.DigestEntry{
			WorkOrder:  wo,
			Urgente:    urgent,
			Antiguedad: domain.FormatElapsed(wo.CreatedAt, now),
		})
	}

	for techID, entries := range grouped {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].WorkOrder.CreatedAt.Before(entries[j].WorkOrder.CreatedAt)
		})
		td := domain.TechnicianDigest{
			Technician: techByID[techID],
			Entries:    entries,
		}
		for _, entry := range entries {
			if entry.Urgente {
				td.Urgentes++
			}
		}
		digest.PorTecnico = append(digest.PorTecnico, td)
	}

	// deterministic delivery order: heaviest load first, name as tiebreak
	sort.SliceStable(digest.PorTecnico, func(i, j int) bool {
		if len(digest.PorTecnico[i].Entries) != len(digest.PorTecnico[j].Entries) {
			return len(digest.PorTecnico[i].Entries) > len(digest.PorTecnico[j].Entries)
		}
		return digest.PorTecnico[i].Technician.Nombre < digest.PorTecnico[j].Technician.Nombre
	})

	return digest, nil
}
