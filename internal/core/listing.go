package core

import (
	"fmt"
	"strings"
)

// NormalizeChannel cleans up channel input from HTTP payloads.
func NormalizeChannel(s string) SalesChannel {
	return SalesChannel(strings.ToUpper(strings.TrimSpace(s)))
}

// channelAllowed reports whether scope covers the concrete channel ch.
func channelAllowed(scope SalesChannel, ch SalesChannel) bool {
	if scope == ChannelBoth {
		return ch == ChannelB2C || ch == ChannelB2B
	}
	return scope == ch
}

// ValidateListing enforces the completeness rules for publishing a product on
// a channel: name, category, unit, a positive channel price, and at least one
// image. Violations are reported together so the seller can fix the listing
// in one pass.
func ValidateListing(p *Product, channel SalesChannel) error {
	if channel != ChannelB2C && channel != ChannelB2B {
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidState, channel)
	}
	if !channelAllowed(p.Channels, channel) {
		return fmt.Errorf("%w: product %d is not scoped for channel %s", ErrInvalidState, p.ID, channel)
	}

	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.Category) == "" {
		missing = append(missing, "category")
	}
	if strings.TrimSpace(p.Unit) == "" {
		missing = append(missing, "unit")
	}
	switch channel {
	case ChannelB2C:
		if !p.Pricing.B2CPrice.IsPositive() {
			missing = append(missing, "b2c_price")
		}
	case ChannelB2B:
		if !p.Pricing.B2BPrice.IsPositive() {
			missing = append(missing, "b2b_price")
		}
	}
	if len(p.Media) == 0 {
		missing = append(missing, "image")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteListing, strings.Join(missing, ", "))
	}
	return nil
}
