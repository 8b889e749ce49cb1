package core_test

import (
	"errors"
	"strings"
	"testing"

	"agrishare/internal/core"

	"github.com/shopspring/decimal"
)

func completeProduct() *core.Product {
	return &core.Product{
		ID:       1,
		Name:     "Oignons de Potou",
		Category: "Légumes",
		Unit:     "kg",
		Channels: core.ChannelBoth,
		Pricing: core.ProductPricing{
			B2CPrice: decimal.NewFromInt(600),
			B2BPrice: decimal.NewFromInt(450),
		},
		Media: []core.ProductImage{{ID: 1, URL: "https://cdn.example.com/x.jpg"}},
	}
}

func TestValidateListing(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *core.Product)
		channel core.SalesChannel
		wantErr error
	}{
		{name: "complete B2C", mutate: func(p *core.Product) {}, channel: core.ChannelB2C},
		{name: "complete B2B", mutate: func(p *core.Product) {}, channel: core.ChannelB2B},
		{
			name:    "missing name",
			mutate:  func(p *core.Product) { p.Name = "  " },
			channel: core.ChannelB2C,
			wantErr: core.ErrIncompleteListing,
		},
		{
			name:    "missing category",
			mutate:  func(p *core.Product) { p.Category = "" },
			channel: core.ChannelB2C,
			wantErr: core.ErrIncompleteListing,
		},
		{
			name:    "missing unit",
			mutate:  func(p *core.Product) { p.Unit = "" },
			channel: core.ChannelB2C,
			wantErr: core.ErrIncompleteListing,
		},
		{
			name:    "zero B2C price blocks B2C only",
			mutate:  func(p *core.Product) { p.Pricing.B2CPrice = decimal.Zero },
			channel: core.ChannelB2C,
			wantErr: core.ErrIncompleteListing,
		},
		{
			name:    "zero B2C price does not block B2B",
			mutate:  func(p *core.Product) { p.Pricing.B2CPrice = decimal.Zero },
			channel: core.ChannelB2B,
		},
		{
			name:    "no images",
			mutate:  func(p *core.Product) { p.Media = nil },
			channel: core.ChannelB2C,
			wantErr: core.ErrIncompleteListing,
		},
		{
			name:    "channel outside scope",
			mutate:  func(p *core.Product) { p.Channels = core.ChannelB2C },
			channel: core.ChannelB2B,
			wantErr: core.ErrInvalidState,
		},
		{
			name:    "BOTH is not a publish target",
			mutate:  func(p *core.Product) {},
			channel: core.ChannelBoth,
			wantErr: core.ErrInvalidState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := completeProduct()
			tt.mutate(p)
			err := core.ValidateListing(p, tt.channel)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected valid listing, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateListing_ReportsAllMissingFields(t *testing.T) {
	p := completeProduct()
	p.Name = ""
	p.Unit = ""
	p.Media = nil

	err := core.ValidateListing(p, core.ChannelB2C)
	if !errors.Is(err, core.ErrIncompleteListing) {
		t.Fatalf("expected ErrIncompleteListing, got %v", err)
	}
	for _, field := range []string{"name", "unit", "image"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error should mention %q: %v", field, err)
		}
	}
}

func TestNormalizeChannel(t *testing.T) {
	if core.NormalizeChannel(" b2c ") != core.ChannelB2C {
		t.Error("expected b2c to normalize to B2C")
	}
	if core.NormalizeChannel("both") != core.ChannelBoth {
		t.Error("expected both to normalize to BOTH")
	}
}

func TestNextStage(t *testing.T) {
	next, ok := core.NextStage(core.StageSemis)
	if !ok || next != core.StageCroissance {
		t.Errorf("expected Croissance after Semis, got %s %v", next, ok)
	}
	if _, ok := core.NextStage(core.StageRecolte); ok {
		t.Error("Récolte is terminal")
	}
	if _, ok := core.NextStage("Inconnu"); ok {
		t.Error("unknown stages have no successor")
	}
}
