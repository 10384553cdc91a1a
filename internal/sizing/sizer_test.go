package sizing

import (
	"math"
	"testing"
	"testing/quick"

	"github.com/alanyoungcy/arbot/internal/config"
	"github.com/alanyoungcy/arbot/internal/domain"
)

func testSizer() *PositionSizer {
	cc := config.CapitalConfig{
		TotalCapital:       100,
		MaxSinglePosition:  20,
		MaxDeploymentRatio: 0.80,
		MinTradableSize:    1.0,
	}
	pc := config.ProfitConfig{MinNetMargin: 0.015}
	return NewPositionSizer(cc, pc)
}

func opp(netMargin, yesLiq, noLiq float64) domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		NetMargin:    netMargin,
		YesLiquidity: yesLiq,
		NoLiquidity:  noLiq,
	}
}

func TestSizeCappedByPositionLimit(t *testing.T) {
	p := testSizer()
	got := p.Size(opp(0.02, 1000, 1000), 0)
	if got != 20 {
		t.Errorf("size = %v, want 20 (per-position cap)", got)
	}
}

func TestSizeExceptionalMarginRaisesCeiling(t *testing.T) {
	p := testSizer()
	// Net margin 0.04 > 2*0.015, so the ceiling becomes 25% of capital.
	got := p.Size(opp(0.04, 1000, 1000), 0)
	if got != 25 {
		t.Errorf("size = %v, want 25 (exceptional ceiling)", got)
	}
}

func TestSizeCappedByThinnerBookSide(t *testing.T) {
	p := testSizer()
	// Thinner side has $10 of depth; 90% of that bounds the order.
	got := p.Size(opp(0.02, 10, 1000), 0)
	if math.Abs(got-9) > 1e-9 {
		t.Errorf("size = %v, want 9 (90%% of thin side)", got)
	}
}

func TestSizeCappedByRemainingDeployableCapital(t *testing.T) {
	p := testSizer()
	// 80% of $100 is deployable; $75 already committed leaves $5.
	got := p.Size(opp(0.02, 1000, 1000), 75)
	if got != 5 {
		t.Errorf("size = %v, want 5 (remaining deployable capital)", got)
	}
}

func TestSizeNeverNegative(t *testing.T) {
	p := testSizer()
	got := p.Size(opp(0.02, 1000, 1000), 90)
	if got != 0 {
		t.Errorf("size = %v, want 0 when capital is exhausted", got)
	}
}

func TestTradableFloor(t *testing.T) {
	p := testSizer()
	if p.Tradable(0.5) {
		t.Error("sizes under $1 should not be tradable")
	}
	if !p.Tradable(1.0) {
		t.Error("$1 should be tradable")
	}
}

func TestSizeBoundsProperty(t *testing.T) {
	p := testSizer()
	f := func(margin, yesLiq, noLiq, deployed float64) bool {
		margin = math.Mod(math.Abs(margin), 0.1)
		yesLiq = math.Mod(math.Abs(yesLiq), 10000)
		noLiq = math.Mod(math.Abs(noLiq), 10000)
		deployed = math.Mod(math.Abs(deployed), 200)

		size := p.Size(opp(margin, yesLiq, noLiq), deployed)
		if size < 0 {
			return false
		}
		// Never above the exceptional ceiling.
		if size > 25 {
			return false
		}
		// Never more than 90% of the thinner side.
		thin := math.Min(yesLiq, noLiq)
		return size <= 0.9*thin+1e-9
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestExpectedProfit(t *testing.T) {
	p := testSizer()
	got := p.ExpectedProfit(opp(0.03, 1000, 1000), 20)
	if math.Abs(got-0.6) > 1e-9 {
		t.Errorf("expected profit = %v, want 0.6", got)
	}
}
