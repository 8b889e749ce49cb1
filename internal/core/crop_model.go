package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// CropStage values keep the original French labels used on batch paperwork.
// Stages move strictly forward; Récolte is reached only through Harvest.
type CropStage string

const (
	StageSemis      CropStage = "Semis"
	StageCroissance CropStage = "Croissance"
	StageFloraison  CropStage = "Floraison"
	StageMaturation CropStage = "Maturation"
	StageRecolte    CropStage = "Récolte"
)

// cropStageOrder defines the forward-only progression.
var cropStageOrder = []CropStage{
	StageSemis, StageCroissance, StageFloraison, StageMaturation, StageRecolte,
}

// NextStage returns the stage after s, and false when s is terminal or unknown.
func NextStage(s CropStage) (CropStage, bool) {
	for i, st := range cropStageOrder {
		if st == s && i+1 < len(cropStageOrder) {
			return cropStageOrder[i+1], true
		}
	}
	return s, false
}

// Crop is a tracked planting. ProductID links to the catalog entry created at
// harvest, nil before then.
type Crop struct {
	ID             int              `json:"id"`
	FarmID         int              `json:"farm_id"`
	Name           string           `json:"name"`
	Stage          CropStage        `json:"stage"`
	PlantedOn      *time.Time       `json:"planted_on,omitempty"`
	HarvestOn      *time.Time       `json:"harvest_on,omitempty"`
	Progress       int              `json:"progress"` // 0-100, non-decreasing until harvest
	Health         string           `json:"health"`   // Excellent, Bon, Surveillance, Critique
	EstimatedYield *decimal.Decimal `json:"estimated_yield,omitempty"`
	ProductID      *int             `json:"product_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}
