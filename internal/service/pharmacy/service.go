// Package pharmacy is the stock collaborator the workflow engine dispenses
// against when medication is delivered.
package pharmacy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

type Medication struct {
	ID       string  `json:"id" mapstructure:"id"`
	Name     string  `json:"name" mapstructure:"name"`
	Form     string  `json:"form,omitempty" mapstructure:"form"`
	Stock    int     `json:"stock" mapstructure:"stock"`
	UnitCost float64 `json:"unit_cost" mapstructure:"unit_cost"`
}

type DispenseLine struct {
	MedicationID string `json:"medication_id"`
	Quantity     int    `json:"quantity"`
}

// Service is consumed by the workflow engine. Dispense is not part of the
// clinical store transaction, so callers undo it with AdjustStock.
type Service interface {
	Search(ctx context.Context, query string) ([]Medication, error)
	AdjustStock(ctx context.Context, medicationID string, delta int) (Medication, error)
	Dispense(ctx context.Context, lines []DispenseLine) error
}

type medicationID string

func (m medicationID) String() string { return string(m) }

// Inventory is an in-process Service seeded from configuration.
type Inventory struct {
	mu    sync.Mutex
	items map[string]*Medication
}

func NewInventory(seed []Medication) *Inventory {
	inv := &Inventory{items: make(map[string]*Medication, len(seed))}
	for _, m := range seed {
		m := m
		inv.items[m.ID] = &m
	}
	return inv
}

// Search matches query against id and name, case-insensitively. An empty
// query lists the whole catalog sorted by name.
func (inv *Inventory) Search(_ context.Context, query string) ([]Medication, error) {
	q := strings.ToLower(strings.TrimSpace(query))

	inv.mu.Lock()
	defer inv.mu.Unlock()

	var out []Medication
	for _, m := range inv.items {
		if q == "" || strings.Contains(strings.ToLower(m.Name), q) || strings.Contains(strings.ToLower(m.ID), q) {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (inv *Inventory) AdjustStock(_ context.Context, id string, delta int) (Medication, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	m, ok := inv.items[id]
	if !ok {
		return Medication{}, apperrors.NotFound("medication", medicationID(id))
	}
	if m.Stock+delta < 0 {
		return Medication{}, apperrors.Validation(fmt.Sprintf("insufficient stock for %s: have %d, need %d", m.Name, m.Stock, -delta), nil)
	}
	m.Stock += delta
	return *m, nil
}

// Dispense removes every line from stock or none of them.
func (inv *Inventory) Dispense(_ context.Context, lines []DispenseLine) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	need := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return apperrors.Validation(fmt.Sprintf("quantity for %s must be positive", l.MedicationID), nil)
		}
		if _, ok := inv.items[l.MedicationID]; !ok {
			return apperrors.NotFound("medication", medicationID(l.MedicationID))
		}
		need[l.MedicationID] += l.Quantity
	}
	for id, qty := range need {
		if m := inv.items[id]; m.Stock < qty {
			return apperrors.Validation(fmt.Sprintf("insufficient stock for %s: have %d, need %d", m.Name, m.Stock, qty), nil)
		}
	}
	for id, qty := range need {
		inv.items[id].Stock -= qty
	}
	return nil
}
