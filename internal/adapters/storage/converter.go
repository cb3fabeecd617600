package storage

import (
	"encoding/json"
	"fmt"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
)

func toModel(v domain.Verdict) (VerdictModel, error) {
	names := make([]string, len(v.Names))
	for i, n := range v.Names {
		names[i] = string(n)
	}
	encoded, err := json.Marshal(names)
	if err != nil {
		return VerdictModel{}, fmt.Errorf("encode verdict %s: %w", v.ID, err)
	}
	return VerdictModel{
		ID:          v.ID,
		AnnouncedAt: v.AnnouncedAt.UTC(),
		Names:       string(encoded),
		NameCount:   len(names),
		Monitors:    v.Monitors,
		Delivered:   v.Delivered,
	}, nil
}

func toDomain(m VerdictModel) (*domain.Verdict, error) {
	var names []string
	if m.Names != "" {
		if err := json.Unmarshal([]byte(m.Names), &names); err != nil {
			return nil, fmt.Errorf("decode verdict %s: %w", m.ID, err)
		}
	}
	v := &domain.Verdict{
		ID:          m.ID,
		AnnouncedAt: m.AnnouncedAt,
		Names:       make([]domain.Name, len(names)),
		Monitors:    m.Monitors,
		Delivered:   m.Delivered,
	}
	for i, n := range names {
		v.Names[i] = domain.Name(n)
	}
	return v, nil
}
