package classification

import (
	"context"
	"fmt"

	"detailinfra/internal/pricing"
	"detailinfra/internal/vehicle"
)

type EstimateRequest struct {
	ClassifyRequest
	ServiceID string   `json:"service_id"`
	AddOnIDs  []string `json:"add_on_ids"`
	Miles     float64  `json:"miles"`
}

type VehicleQuote struct {
	Classification vehicle.Result `json:"classification"`
	Quote          pricing.Quote  `json:"quote"`
	Summary        string         `json:"summary"`
}

// EstimateVehicle classifies the vehicle, maps it to a price tier and
// prices the requested job.
func (s *Service) EstimateVehicle(ctx context.Context, req EstimateRequest) (VehicleQuote, error) {
	if req.ServiceID == "" {
		return VehicleQuote{}, fmt.Errorf("%w: service_id is required", ErrInvalidRow)
	}
	res, err := s.Classify(ctx, req.ClassifyRequest)
	if err != nil {
		return VehicleQuote{}, err
	}
	tier := pricing.TierFor(res.Category, res.Luxury)
	q := s.catalog.Estimate(req.ServiceID, req.AddOnIDs, tier, req.Miles)
	return VehicleQuote{Classification: res, Quote: q, Summary: q.Summary()}, nil
}
