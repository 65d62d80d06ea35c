package billing

import (
	"strings"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
)

// RateProvider is the read-only price list cost accumulation reads from.
type RateProvider interface {
	DailyRate(t model.HospitalizationType) (float64, bool)
	StudyCost(name string) float64
}

// StaticRates is a RateProvider loaded from configuration. Study names are
// matched case-insensitively; unknown studies cost DefaultStudyCost.
type StaticRates struct {
	daily            map[model.HospitalizationType]float64
	studies          map[string]float64
	defaultStudyCost float64
}

func NewStaticRates(daily map[string]float64, studies map[string]float64, defaultStudyCost float64) *StaticRates {
	r := &StaticRates{
		daily:            make(map[model.HospitalizationType]float64, len(daily)),
		studies:          make(map[string]float64, len(studies)),
		defaultStudyCost: defaultStudyCost,
	}
	for k, v := range daily {
		r.daily[model.HospitalizationType(strings.ToUpper(strings.TrimSpace(k)))] = v
	}
	for k, v := range studies {
		r.studies[normalize(k)] = v
	}
	return r
}

func (r *StaticRates) DailyRate(t model.HospitalizationType) (float64, bool) {
	v, ok := r.daily[t]
	return v, ok
}

func (r *StaticRates) StudyCost(name string) float64 {
	if v, ok := r.studies[normalize(name)]; ok {
		return v
	}
	return r.defaultStudyCost
}

func normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
