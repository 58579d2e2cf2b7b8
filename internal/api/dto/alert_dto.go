package dto

import (
	"github.com/fieldops/workorder-service/internal/domain"
)

// DigestEntryResponse represents one open work order in a technician digest.
type DigestEntryResponse struct {
	Folio      string           `json:"folio"`
	Titulo     string           `json:"titulo"`
	Prioridad  domain.Prioridad `json:"prioridad"`
	Etapa      domain.Etapa     `json:"etapa"`
	Urgente    bool             `json:"urgente"`
	Antiguedad string           `json:"antiguedad"`
}

// TechnicianDigestResponse groups one technician's pending work.
type TechnicianDigestResponse struct {
	TechnicianID string                `json:"technician_id"`
	Nombre       string                `json:"nombre"`
	Urgentes     int                   `json:"urgentes"`
	Entries      []DigestEntryResponse `json:"entries"`
}

// DigestResponse is the full digest preview.
type DigestResponse struct {
	PorTecnico    []TechnicianDigestResponse `json:"por_tecnico"`
	SinAsignar    int                        `json:"sin_asignar"`
	TotalAbiertas int                        `json:"total_abiertas"`
	TotalUrgentes int                        `json:"total_urgentes"`
}

// FromDigest maps the derived digest.
func FromDigest(digest *domain.Digest) DigestResponse {
	resp := DigestResponse{
		SinAsignar:    digest.SinAsignar,
		TotalAbiertas: digest.TotalAbiertas,
		TotalUrgentes: digest.TotalUrgentes,
		PorTecnico:    make([]TechnicianDigestResponse, 0, len(digest.PorTecnico)),
	}
	for _, td := range digest.PorTecnico {
		entries := make([]DigestEntryResponse, 0, len(td.Entries))
		for _, entry := range td.Entries {
			entries = append(entries, DigestEntryResponse{
				Folio:      entry.WorkOrder.Folio(),
				Titulo:     entry.WorkOrder.Titulo,
				Prioridad:  entry.WorkOrder.Prioridad,
				Etapa:      entry.WorkOrder.Etapa,
				Urgente:    entry.Urgente,
				Antiguedad: entry.Antiguedad,
			})
		}
		resp.PorTecnico = append(resp.PorTecnico, TechnicianDigestResponse{
			TechnicianID: td.Technician.ID,
			Nombre:       td.Technician.Nombre,
			Urgentes:     td.Urgentes,
			Entries:      entries,
		})
	}
	return resp
}
